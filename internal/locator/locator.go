// Package locator finds the content image sitting at the vertical centre of
// the viewport of a long-scroll page. Everything it knows comes from visible
// geometry; there is no markup contract with the page.
package locator

import (
	"math"

	"golang.org/x/net/html"

	"github.com/v0xg/mangaprogress/internal/dom"
)

// ContainerTags are the element types considered as inner scroll surfaces.
var ContainerTags = map[string]bool{
	"div":     true,
	"section": true,
	"main":    true,
	"article": true,
}

// Config tunes the heuristic. Zero fields take the defaults.
type Config struct {
	// LongScrollFactor is the multiple of the viewport height a scroll
	// surface must exceed. Default: 2.
	LongScrollFactor float64

	// MinHeight and MinWidth are the smallest element box considered, in
	// pixels. Defaults: 100 and 200. A negative MinWidth disables the check.
	MinHeight float64
	MinWidth  float64

	// Default: ImageOnly.
	Content ContentFilter

	// Default: AncestorSiblings(10).
	Significance SignificanceFilter
}

func (c *Config) defaults() {
	if c.LongScrollFactor <= 0 {
		c.LongScrollFactor = 2
	}
	if c.MinHeight <= 0 {
		c.MinHeight = 100
	}
	if c.MinWidth == 0 {
		c.MinWidth = 200
	}
	if c.Content == nil {
		c.Content = ImageOnly
	}
	if c.Significance == nil {
		c.Significance = AncestorSiblings(10)
	}
}

// Match is the element closest to the viewport centre.
type Match struct {
	Root    *html.Node // scroll surface the element was searched under
	Element *html.Node
	// RelativeOffset is where the viewport centre sits inside the element,
	// as a fraction of its height. It is not clamped.
	RelativeOffset float64
	Distance       float64
}

// Locator applies the configured heuristic to snapshots.
type Locator struct {
	cfg Config
}

// New creates a Locator.
func New(cfg Config) *Locator {
	cfg.defaults()
	return &Locator{cfg: cfg}
}

// LongScrollRoot returns the surface a position is saved against: the
// tallest scrollable container whose scroll height exceeds the threshold,
// else the document element when the document itself exceeds it, else nil.
func (l *Locator) LongScrollRoot(doc *dom.Document) *html.Node {
	threshold := doc.Viewport.Height * l.cfg.LongScrollFactor

	var best *html.Node
	bestHeight := 0.0
	for _, n := range doc.Descendants(doc.Root()) {
		if !ContainerTags[n.Data] {
			continue
		}
		box := doc.Box(n)
		if !box.Style.Scrollable() || !box.Overflows() {
			continue
		}
		if box.ScrollHeight > threshold && box.ScrollHeight > bestHeight {
			best, bestHeight = n, box.ScrollHeight
		}
	}
	if best != nil {
		return best
	}

	if doc.DocumentHeight() > threshold {
		return doc.Root()
	}
	return nil
}

// IsLongScroll reports whether the page qualifies for position saving.
func (l *Locator) IsLongScroll(doc *dom.Document) bool {
	return l.LongScrollRoot(doc) != nil
}

// Locate returns the qualifying element nearest the viewport centre. The
// first element met wins ties.
func (l *Locator) Locate(doc *dom.Document) (Match, bool) {
	root := l.LongScrollRoot(doc)
	if root == nil {
		return Match{}, false
	}

	vh := doc.Viewport.Height
	center := vh / 2

	var best Match
	found := false
	for _, n := range doc.Descendants(root) {
		if !l.qualifies(doc, root, n) {
			continue
		}
		rect := doc.Box(n).Rect
		d := math.Abs(rect.CenterY() - center)
		if !found || d < best.Distance {
			best = Match{Root: root, Element: n, Distance: d}
			found = true
		}
	}
	if !found {
		return Match{}, false
	}

	rect := doc.Box(best.Element).Rect
	best.RelativeOffset = (center - rect.Top) / rect.Height
	return best, true
}

func (l *Locator) qualifies(doc *dom.Document, root, n *html.Node) bool {
	box := doc.Box(n)
	if box.Style.Hidden() {
		return false
	}
	if !l.cfg.Content(doc, n) {
		return false
	}

	rect := box.Rect
	if rect.Bottom() < 0 || rect.Top > doc.Viewport.Height {
		return false
	}
	if rect.Height <= 0 || rect.Height < l.cfg.MinHeight {
		return false
	}
	if l.cfg.MinWidth > 0 && rect.Width < l.cfg.MinWidth {
		return false
	}
	return l.cfg.Significance(doc, root, n)
}
