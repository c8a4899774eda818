package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/mangaprogress/internal/dom"
	"github.com/v0xg/mangaprogress/internal/dom/domtest"
)

func readerDoc() *dom.Document {
	vp := dom.Viewport{Width: 1280, Height: 1000}
	nav := domtest.Attr(domtest.El("span", dom.Rect{}, domtest.Text(" 7 / 42 ")), "class", "pages")
	meta := domtest.Attr(domtest.El("div", dom.Rect{}), "id", "reader", "data-total", "42")
	imgs := []dom.Node{
		domtest.El("img", dom.Rect{Top: -900, Height: 800}),
		domtest.El("img", dom.Rect{Top: -100, Height: 800}),
		domtest.El("img", dom.Rect{Top: 700, Height: 800}),
		domtest.El("img", dom.Rect{Top: 1500, Height: 800}),
	}
	list := domtest.Attr(domtest.El("div", dom.Rect{}, imgs...), "class", "list")
	marker := domtest.Attr(domtest.El("hr", dom.Rect{Top: 750}), "id", "marker")
	return domtest.Page(vp, 5000, nav, meta, list, marker)
}

func TestRun_Text(t *testing.T) {
	doc := readerDoc()

	v, err := Run(doc, Config{Mode: ModeText, Selector: ".pages", Regex: `(\d+) /`, Group: 1})
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	v, err = Run(doc, Config{Mode: ModeText, Selector: ".pages", Regex: `/ (\d+)`, Group: 1})
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
}

func TestRun_TextAcrossNodes(t *testing.T) {
	// Shape of the capture for <div class="text-h6"><span>3</span> / <span>45</span></div>.
	data := []byte(`{
		"viewport": {"width": 1280, "height": 1000},
		"root": {"tag": "html", "children": [{"tag": "body", "children": [
			{"tag": "div", "attrs": {"class": "text-h6"}, "children": [
				{"tag": "span", "children": [{"text": "3"}]},
				{"text": " / "},
				{"tag": "span", "children": [{"text": "45"}]},
				{"text": " "}
			]}
		]}]}
	}`)
	doc, err := dom.Decode(data)
	require.NoError(t, err)

	v, err := Run(doc, Config{Mode: ModeText, Selector: ".text-h6", Regex: `(\d+) /`, Group: 1})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = Run(doc, Config{Mode: ModeText, Selector: ".text-h6", Regex: `/ (\d+)`, Group: 1})
	require.NoError(t, err)
	assert.Equal(t, 45.0, v)
}

func TestRun_TextWholeMatch(t *testing.T) {
	v, err := Run(readerDoc(), Config{Mode: ModeText, Selector: ".pages", Regex: `\d+`})
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
}

func TestRun_Attribute(t *testing.T) {
	v, err := Run(readerDoc(), Config{Mode: ModeAttribute, Selector: "#reader", Attribute: "data-total"})
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	_, err = Run(readerDoc(), Config{Mode: ModeAttribute, Selector: "#reader", Attribute: "data-missing"})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestRun_Count(t *testing.T) {
	v, err := Run(readerDoc(), Config{Mode: ModeCount, Selector: ".list img"})
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}

func TestRun_CountAbove(t *testing.T) {
	// Viewport centre is 500: two images start above it.
	v, err := Run(readerDoc(), Config{Mode: ModeCountAbove, Selector: ".list img"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	// Reference at 750: the third image (top 700) now counts too.
	v, err = Run(readerDoc(), Config{Mode: ModeCountAbove, Selector: ".list img", Reference: "#marker"})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestRun_Failures(t *testing.T) {
	doc := readerDoc()

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no match", Config{Mode: ModeText, Selector: ".missing"}, ErrNoMatch},
		{"count no match", Config{Mode: ModeCount, Selector: ".missing img"}, ErrNoMatch},
		{"missing reference", Config{Mode: ModeCountAbove, Selector: "img", Reference: "#nope"}, ErrNoMatch},
		{"regex miss", Config{Mode: ModeText, Selector: ".pages", Regex: `page (\d+)`, Group: 1}, ErrNoRegexMatch},
		{"group out of range", Config{Mode: ModeText, Selector: ".pages", Regex: `(\d+)`, Group: 3}, ErrNoRegexMatch},
		{"not a number", Config{Mode: ModeText, Selector: ".pages"}, ErrNotNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(doc, tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRun_UnknownMode(t *testing.T) {
	_, err := Run(readerDoc(), Config{Mode: "xpath", Selector: ".pages"})
	assert.Error(t, err)
}
