package ai

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/v0xg/mangaprogress/internal/dom"
)

// PageMap is the condensed view of a reader page sent to the model.
type PageMap struct {
	URL         string       `json:"url"`
	Title       string       `json:"title"`
	ImageGroups []ImageGroup `json:"imageGroups"`
	Counters    []Counter    `json:"counters"`
}

// ImageGroup is a container holding a run of page images.
type ImageGroup struct {
	Selector string `json:"selector"` // matches the images themselves
	Count    int    `json:"count"`
}

// Counter is an element whose own text looks like "N / M".
type Counter struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

const maxCounters = 20

var (
	counterRe = regexp.MustCompile(`\d+\s*(?:/|of)\s*\d+`)
	invalidID = regexp.MustCompile(`^-?[0-9]|[.:#\[\]()>~+*/\\\s]`)
)

// Survey builds a PageMap from a snapshot.
func Survey(url string, doc *dom.Document) *PageMap {
	pm := &PageMap{
		URL:   url,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	for _, n := range append([]*html.Node{doc.Root()}, doc.Descendants(doc.Root())...) {
		imgs := 0
		for _, c := range dom.Children(n) {
			if dom.IsImage(c) {
				imgs++
			}
		}
		if imgs > 2 {
			pm.ImageGroups = append(pm.ImageGroups, ImageGroup{
				Selector: selectorFor(doc, n) + " > img",
				Count:    imgs,
			})
		}

		if len(pm.Counters) < maxCounters {
			if text := ownText(n); counterRe.MatchString(text) {
				if len(text) > 80 {
					text = text[:80]
				}
				pm.Counters = append(pm.Counters, Counter{Selector: selectorFor(doc, n), Text: text})
			}
		}
	}
	return pm
}

func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// selectorFor builds a selector matching only n: its id, a unique class
// pair, or an nth-child chain from a parent that has one.
func selectorFor(doc *dom.Document, n *html.Node) string {
	sel := doc.Select(n)
	if id, ok := sel.Attr("id"); ok && validIdent(id) {
		return "#" + id
	}

	if class, ok := sel.Attr("class"); ok {
		var valid []string
		for _, c := range strings.Fields(class) {
			if validIdent(c) {
				valid = append(valid, c)
			}
			if len(valid) == 2 {
				break
			}
		}
		if len(valid) > 0 {
			s := n.Data + "." + strings.Join(valid, ".")
			if doc.Find(s).Length() == 1 {
				return s
			}
		}
	}

	parent := dom.Parent(n)
	if parent == nil {
		return n.Data
	}
	idx := 1
	for _, c := range dom.Children(parent) {
		if c == n {
			break
		}
		idx++
	}
	return selectorFor(doc, parent) + " > " + n.Data + ":nth-child(" + strconv.Itoa(idx) + ")"
}

func validIdent(s string) bool {
	return s != "" && !invalidID.MatchString(s)
}
