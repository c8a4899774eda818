// Package domtest builds small captured documents for tests.
package domtest

import (
	"fmt"

	"github.com/v0xg/mangaprogress/internal/dom"
)

// El returns an element node with the given rect and children.
func El(tag string, rect dom.Rect, children ...dom.Node) dom.Node {
	return dom.Node{Tag: tag, Rect: rect, Style: dom.Style{Display: "block", Opacity: "1"}, Children: children}
}

// Text returns a text node.
func Text(s string) dom.Node {
	return dom.Node{Text: s}
}

// Attr returns n with the key/value pairs added to its attributes.
func Attr(n dom.Node, kv ...string) dom.Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attrs[kv[i]] = kv[i+1]
	}
	return n
}

// Scroll returns n marked as a scroll container.
func Scroll(n dom.Node, scrollHeight, clientHeight, scrollTop float64) dom.Node {
	n.Style.OverflowY = "auto"
	n.ScrollHeight = scrollHeight
	n.ClientHeight = clientHeight
	n.ScrollTop = scrollTop
	return n
}

// Page wraps body children into html/body with the given document height.
func Page(vp dom.Viewport, docHeight float64, body ...dom.Node) *dom.Document {
	b := El("body", dom.Rect{Top: -vp.ScrollY, Width: vp.Width, Height: docHeight}, body...)
	b.ScrollHeight = docHeight
	b.ClientHeight = docHeight
	root := El("html", dom.Rect{Top: -vp.ScrollY, Width: vp.Width, Height: docHeight}, b)
	root.ScrollHeight = docHeight
	root.ClientHeight = vp.Height
	return dom.New(root, vp)
}

// Strip builds a vertically stacked reader: a header, then a div.viewer
// holding n images of the given height, laid out from y=100 in page
// coordinates and scrolled by vp.ScrollY.
func Strip(vp dom.Viewport, n int, imgHeight float64) *dom.Document {
	const headerHeight = 100
	imgs := make([]dom.Node, 0, n)
	for i := 0; i < n; i++ {
		top := headerHeight + float64(i)*imgHeight - vp.ScrollY
		img := Attr(El("img", dom.Rect{Top: top, Width: 800, Height: imgHeight}),
			"src", fmt.Sprintf("/p/%d.jpg", i+1))
		imgs = append(imgs, img)
	}
	viewer := Attr(El("div", dom.Rect{Top: headerHeight - vp.ScrollY, Width: 800, Height: float64(n) * imgHeight}, imgs...),
		"class", "viewer")
	header := El("header", dom.Rect{Top: -vp.ScrollY, Width: vp.Width, Height: headerHeight}, Text("Chapter"))
	return Page(vp, headerHeight+float64(n)*imgHeight, header, viewer)
}
