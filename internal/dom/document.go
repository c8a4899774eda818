// Package dom holds an immutable snapshot of a rendered page: the element
// tree, per-element geometry and the viewport at capture time. Selector
// queries go through goquery.
package dom

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is one captured state of a page.
type Document struct {
	Viewport Viewport

	doc   *goquery.Document
	root  *html.Node
	boxes map[*html.Node]Box
}

// New builds a Document from a captured node tree. root is normally the
// <html> element.
func New(root Node, vp Viewport) *Document {
	d := &Document{
		Viewport: vp,
		boxes:    make(map[*html.Node]Box),
	}
	top := &html.Node{Type: html.DocumentNode}
	d.root = d.build(root)
	top.AppendChild(d.root)
	d.doc = goquery.NewDocumentFromNode(top)
	return d
}

// Decode parses the JSON emitted by the browser capture script.
func Decode(data []byte) (*Document, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("dom: decode snapshot: %w", err)
	}
	if snap.Root.Tag == "" {
		return nil, fmt.Errorf("dom: snapshot has no root element")
	}
	return New(snap.Root, snap.Viewport), nil
}

func (d *Document) build(n Node) *html.Node {
	if n.Tag == "" {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}

	tag := strings.ToLower(n.Tag)
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		el.Attr = append(el.Attr, html.Attribute{Key: k, Val: n.Attrs[k]})
	}

	d.boxes[el] = Box{
		Rect:         n.Rect,
		Style:        n.Style,
		ScrollHeight: n.ScrollHeight,
		ClientHeight: n.ClientHeight,
		ScrollTop:    n.ScrollTop,
	}

	for _, c := range n.Children {
		el.AppendChild(d.build(c))
	}
	return el
}

// Root returns the document element.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the <body> element, or the root when there is none.
func (d *Document) Body() *html.Node {
	for _, c := range Children(d.root) {
		if c.Data == "body" {
			return c
		}
	}
	return d.root
}

// Find runs a CSS selector against the whole document. An invalid selector
// matches nothing.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Select wraps a single node for goquery traversal.
func (d *Document) Select(n *html.Node) *goquery.Selection {
	return d.doc.FindNodes(n)
}

// Box returns the captured geometry of n. Nodes without geometry get the
// zero Box.
func (d *Document) Box(n *html.Node) Box {
	return d.boxes[n]
}

// DocumentHeight is the larger of the root and body scroll heights.
func (d *Document) DocumentHeight() float64 {
	h := d.Box(d.root).ScrollHeight
	if b := d.Box(d.Body()).ScrollHeight; b > h {
		h = b
	}
	return h
}

// Descendants returns every element below n in document order, n excluded.
func (d *Document) Descendants(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Parent returns the element parent of n, or nil at the top of the tree.
func Parent(n *html.Node) *html.Node {
	if n == nil || n.Parent == nil || n.Parent.Type != html.ElementNode {
		return nil
	}
	return n.Parent
}

// IsImage reports whether n is an <img> element.
func IsImage(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == atom.Img
}
