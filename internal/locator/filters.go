package locator

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/v0xg/mangaprogress/internal/dom"
)

// ContentFilter decides whether an element carries visual image content.
type ContentFilter func(doc *dom.Document, n *html.Node) bool

// SignificanceFilter rejects isolated, decorative elements. root bounds
// any upward search.
type SignificanceFilter func(doc *dom.Document, root, n *html.Node) bool

// ImageOnly accepts <img> elements.
func ImageOnly(_ *dom.Document, n *html.Node) bool {
	return dom.IsImage(n)
}

// ImageOrBackground accepts <img> elements and elements painted with a
// background image.
func ImageOrBackground(doc *dom.Document, n *html.Node) bool {
	return dom.IsImage(n) || doc.Box(n).Style.HasBackgroundImage()
}

// AncestorSiblings climbs at most maxClimb levels from n (stopping at root)
// looking for a parent with more than two element children.
func AncestorSiblings(maxClimb int) SignificanceFilter {
	return func(_ *dom.Document, root, n *html.Node) bool {
		cur := n
		for i := 0; i < maxClimb; i++ {
			if cur == nil || cur == root {
				return false
			}
			parent := dom.Parent(cur)
			if parent != nil && len(dom.Children(parent)) > 2 {
				return true
			}
			cur = parent
		}
		return false
	}
}

// SiblingImages accepts n when its parent holds more than two images, or
// its grandparent holds more than five image descendants.
func SiblingImages(doc *dom.Document, _, n *html.Node) bool {
	parent := dom.Parent(n)
	if parent == nil {
		return false
	}
	siblings := 0
	for _, c := range dom.Children(parent) {
		if dom.IsImage(c) {
			siblings++
		}
	}
	if siblings > 2 {
		return true
	}

	grand := dom.Parent(parent)
	if grand == nil {
		return false
	}
	images := 0
	for _, d := range doc.Descendants(grand) {
		if dom.IsImage(d) {
			images++
		}
	}
	return images > 5
}

// ContentFilterByName resolves a configured content filter.
func ContentFilterByName(name string) (ContentFilter, error) {
	switch name {
	case "", "image":
		return ImageOnly, nil
	case "image-or-background":
		return ImageOrBackground, nil
	default:
		return nil, fmt.Errorf("locator: unknown content filter %q", name)
	}
}

// SignificanceFilterByName resolves a configured significance filter.
func SignificanceFilterByName(name string, maxClimb int) (SignificanceFilter, error) {
	switch name {
	case "", "ancestor-siblings":
		return AncestorSiblings(maxClimb), nil
	case "sibling-images":
		return SiblingImages, nil
	default:
		return nil, fmt.Errorf("locator: unknown significance filter %q", name)
	}
}
