// Package preview turns a viewport screenshot into a small thumbnail with
// the saved reading line marked on it.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/nfnt/resize"
)

// Options configures thumbnail rendering.
type Options struct {
	MaxWidth uint    // Default: 480
	Line     float64 // marker height as a fraction of the image. Default: 0.5
}

var markerColor = color.RGBA{239, 68, 68, 255}

// Render decodes a PNG screenshot, shrinks it to MaxWidth keeping the
// aspect ratio, draws the marker line and returns the result as PNG.
// Images narrower than MaxWidth are not enlarged.
func Render(shot []byte, opts Options) ([]byte, error) {
	if opts.MaxWidth == 0 {
		opts.MaxWidth = 480
	}
	if opts.Line <= 0 || opts.Line >= 1 {
		opts.Line = 0.5
	}

	src, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, fmt.Errorf("preview: decode: %w", err)
	}

	bounds := src.Bounds()
	width := uint(bounds.Dx())
	if width > opts.MaxWidth {
		width = opts.MaxWidth
	}
	aspectRatio := float64(bounds.Dy()) / float64(bounds.Dx())
	height := uint(float64(width) * aspectRatio)
	if height == 0 {
		height = 1
	}

	resized := resize.Resize(width, height, src, resize.Lanczos3)
	out := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	draw.Draw(out, out.Bounds(), resized, resized.Bounds().Min, draw.Src)

	drawMarker(out, int(float64(height)*opts.Line))

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("preview: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// drawMarker draws a dashed line across the image at y, with a small
// arrowhead at the left edge.
func drawMarker(img *image.RGBA, y int) {
	w := img.Bounds().Dx()
	for x := 0; x < w; x += 12 {
		end := x + 7
		if end >= w {
			end = w - 1
		}
		drawLine(img, x, y, end, y, markerColor)
		drawLine(img, x, y+1, end, y+1, markerColor)
	}

	for i := 0; i <= 6; i++ {
		drawLine(img, 0, y-6+i, i, y, markerColor)
		drawLine(img, 0, y+6-i, i, y, markerColor)
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		setPixelSafe(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
