package progress

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/v0xg/mangaprogress/internal/collector"
	"github.com/v0xg/mangaprogress/internal/dom"
	"github.com/v0xg/mangaprogress/internal/dom/domtest"
)

// pagesDoc renders "<current> / <total>" into span.pages plus any extra nodes.
func pagesDoc(current, total int, extra ...dom.Node) *dom.Document {
	nav := domtest.Attr(domtest.El("span", dom.Rect{}, domtest.Text(fmt.Sprintf("%d / %d", current, total))), "class", "pages")
	return domtest.Page(dom.Viewport{Width: 1280, Height: 720}, 720, append([]dom.Node{nav}, extra...)...)
}

func textPair(selector string) (collector.Config, collector.Config) {
	return collector.Config{Mode: collector.ModeText, Selector: selector, Regex: `(\d+) /`, Group: 1},
		collector.Config{Mode: collector.ModeText, Selector: selector, Regex: `/ (\d+)`, Group: 1}
}

func fixed(current, total string) Config {
	return Config{
		Current: collector.Config{Mode: collector.ModeAttribute, Selector: "#fixed", Attribute: current},
		Total:   collector.Config{Mode: collector.ModeAttribute, Selector: "#fixed", Attribute: total},
	}
}

func TestResolve_FirstSuccessWins(t *testing.T) {
	fixedEl := domtest.Attr(domtest.El("div", dom.Rect{}), "id", "fixed",
		"data-b-cur", "5", "data-b-total", "20", "data-c-cur", "1", "data-c-total", "1")
	doc := pagesDoc(3, 9, fixedEl)

	a := Config{Name: "a", Current: collector.Config{Mode: collector.ModeText, Selector: ".missing"}}
	b := fixed("data-b-cur", "data-b-total")
	c := fixed("data-c-cur", "data-c-total")

	got := NewResolver([]Config{a, b, c}, nil).Resolve(doc)
	require.NotNil(t, got)
	assert.Equal(t, Result{Current: 5, Total: 20}, *got)
}

func TestResolve_TotalFailureSkips(t *testing.T) {
	cur, _ := textPair(".pages")
	broken := Config{Current: cur, Total: collector.Config{Mode: collector.ModeCount, Selector: ".missing"}}
	cur2, tot2 := textPair(".pages")

	got := NewResolver([]Config{broken, {Current: cur2, Total: tot2}}, nil).Resolve(pagesDoc(3, 9))
	require.NotNil(t, got)
	assert.Equal(t, Result{Current: 3, Total: 9}, *got)
}

func TestResolve_Conditions(t *testing.T) {
	cur, tot := textPair(".pages")
	alt := domtest.Attr(domtest.El("div", dom.Rect{}), "id", "alt", "data-cur", "8", "data-total", "10")
	altCfg := Config{
		Condition: SelectorPresent("#alt"),
		Current:   collector.Config{Mode: collector.ModeAttribute, Selector: "#alt", Attribute: "data-cur"},
		Total:     collector.Config{Mode: collector.ModeAttribute, Selector: "#alt", Attribute: "data-total"},
	}
	primary := Config{Current: cur, Total: tot}
	r := NewResolver([]Config{altCfg, primary}, nil)

	got := r.Resolve(pagesDoc(3, 9))
	require.NotNil(t, got)
	assert.Equal(t, Result{Current: 3, Total: 9}, *got, "alt skipped when its selector is absent")

	got = r.Resolve(pagesDoc(3, 9, alt))
	require.NotNil(t, got)
	assert.Equal(t, Result{Current: 8, Total: 10}, *got)

	never := Config{Condition: Predicate(func(*dom.Document) bool { return false }), Current: cur, Total: tot}
	assert.Nil(t, NewResolver([]Config{never}, nil).Resolve(pagesDoc(3, 9)))
}

func TestResolve_NothingMatches(t *testing.T) {
	cur, tot := textPair(".missing")
	assert.Nil(t, NewResolver([]Config{{Current: cur, Total: tot}}, nil).Resolve(pagesDoc(1, 2)))
	assert.Nil(t, NewResolver(nil, nil).Resolve(pagesDoc(1, 2)))
}

func TestWithFallbacks(t *testing.T) {
	cur, tot := textPair(".pages")
	site := []Config{{Name: "site", Current: cur, Total: tot}}

	all := WithFallbacks(site)
	require.Len(t, all, len(Fallbacks)+1)
	assert.Equal(t, "amr", all[0].Name)
	assert.Equal(t, "site", all[len(all)-1].Name)

	amrNav := domtest.Attr(domtest.El("div", dom.Rect{},
		domtest.Attr(domtest.El("span", dom.Rect{}, domtest.Text("12 / 30")), "class", "text-h6")),
		"class", "amr-pages-nav")
	amr := domtest.Attr(domtest.El("div", dom.Rect{}, amrNav), "id", "amrapp")

	got := NewResolver(all, nil).Resolve(pagesDoc(3, 9, amr))
	require.NotNil(t, got)
	assert.Equal(t, Result{Current: 12, Total: 30}, *got)
}

func TestConfig_YAML(t *testing.T) {
	src := `
- name: viewer
  current: {mode: countAbove, selector: ".viewer img"}
  total: {mode: count, selector: ".viewer img"}
- name: alt
  condition: "#alt"
  current: {mode: text, selector: ".nav", regex: '(\d+) /', group: 1}
  total: {mode: text, selector: ".nav", regex: '/ (\d+)', group: 1}
`
	var cfgs []Config
	require.NoError(t, yaml.Unmarshal([]byte(src), &cfgs))
	require.Len(t, cfgs, 2)

	assert.Equal(t, "always", cfgs[0].Condition.String())
	assert.Equal(t, collector.ModeCountAbove, cfgs[0].Current.Mode)
	assert.Equal(t, "selector:#alt", cfgs[1].Condition.String())
	assert.Equal(t, 1, cfgs[1].Total.Group)

	out, err := yaml.Marshal(cfgs[1])
	require.NoError(t, err)
	assert.Contains(t, string(out), "#alt")
	assert.Contains(t, string(out), "condition:")
}

func TestConfig_JSON(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"condition": ".reader", "current": {"mode": "count", "selector": "img"}, "total": {"mode": "count", "selector": "img"}}`), &cfg))
	assert.Equal(t, "selector:.reader", cfg.Condition.String())

	require.NoError(t, json.Unmarshal([]byte(`{"condition": null, "current": {"mode": "count", "selector": "img"}}`), &cfg))
	assert.Equal(t, "always", cfg.Condition.String())

	assert.Error(t, json.Unmarshal([]byte(`{"condition": 3}`), &cfg))
}
