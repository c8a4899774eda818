package dom

import "strings"

// Rect is an element's bounding client rect, in viewport pixels.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom returns the bottom edge of the rect.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// CenterY returns the vertical centre of the rect.
func (r Rect) CenterY() float64 { return r.Top + r.Height/2 }

// Style carries the computed style properties the heuristics look at.
type Style struct {
	Display         string `json:"display,omitempty"`
	Opacity         string `json:"opacity,omitempty"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
	Overflow        string `json:"overflow,omitempty"`
	OverflowY       string `json:"overflowY,omitempty"`
}

// Hidden reports whether the element is not painted at all.
func (s Style) Hidden() bool {
	return s.Display == "none" || s.Opacity == "0"
}

// Scrollable reports whether the element has a CSS scroll affordance.
func (s Style) Scrollable() bool {
	v := s.OverflowY + " " + s.Overflow
	return strings.Contains(v, "auto") || strings.Contains(v, "scroll")
}

// HasBackgroundImage reports whether a non-none background image is set.
func (s Style) HasBackgroundImage() bool {
	return s.BackgroundImage != "" && s.BackgroundImage != "none"
}

// Box is the geometry captured for one element.
type Box struct {
	Rect         Rect
	Style        Style
	ScrollHeight float64
	ClientHeight float64
	ScrollTop    float64
}

// Overflows reports whether the content is taller than the visible box.
func (b Box) Overflows() bool { return b.ScrollHeight > b.ClientHeight }

// Node is the serialised form of one DOM node as captured from the browser.
// A node with an empty Tag is a text node.
type Node struct {
	Tag          string            `json:"tag,omitempty"`
	Text         string            `json:"text,omitempty"`
	Attrs        map[string]string `json:"attrs,omitempty"`
	Rect         Rect              `json:"rect"`
	Style        Style             `json:"style"`
	ScrollHeight float64           `json:"scrollHeight,omitempty"`
	ClientHeight float64           `json:"clientHeight,omitempty"`
	ScrollTop    float64           `json:"scrollTop,omitempty"`
	Children     []Node            `json:"children,omitempty"`
}

// Viewport describes the window at capture time.
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScrollY float64 `json:"scrollY"`
}

// Snapshot is the wire format produced by the browser capture script.
type Snapshot struct {
	Viewport Viewport `json:"viewport"`
	Root     Node     `json:"root"`
}
