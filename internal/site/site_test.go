package site

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/v0xg/mangaprogress/internal/dom"
	"github.com/v0xg/mangaprogress/internal/dom/domtest"
	"github.com/v0xg/mangaprogress/internal/progress"
)

const sitesYAML = `
- name: toons
  match: '^https://toons\.example/'
  sync: '/viewer'
  identifier: {param: title_no}
  chapter: {param: episode_no}
  readers:
    - name: pager
      condition: .pager
      current: {mode: text, selector: .pager, regex: '(\d+) /', group: 1}
      total: {mode: text, selector: .pager, regex: '/ (\d+)', group: 1}
- name: reader
  match: '^https://read\.example/manga/'
  identifier: {pattern: '/manga/([^/]+)/'}
  chapter: {selector: 'h1.chapter'}
- name: attr
  match: '^https://attr\.example/'
  identifier: {selector: '#comic', attribute: data-slug}
  chapter: {pattern: 'c(\d+)$'}
`

func registry(t *testing.T) *Registry {
	t.Helper()
	var defs []Definition
	require.NoError(t, yaml.Unmarshal([]byte(sitesYAML), &defs))
	r, err := NewRegistry(defs)
	require.NoError(t, err)
	return r
}

func page(body ...dom.Node) *dom.Document {
	return domtest.Page(dom.Viewport{Width: 1280, Height: 900}, 900, body...)
}

func TestRegistry_Lookup(t *testing.T) {
	r := registry(t)
	assert.Equal(t, []string{"toons", "reader", "attr"}, r.Names())

	a, u, err := r.Lookup("https://toons.example/en/viewer?title_no=95&episode_no=12")
	require.NoError(t, err)
	assert.Equal(t, "toons", a.Name())
	assert.True(t, a.IsSyncPage(u))

	list, _ := url.Parse("https://toons.example/en/list?title_no=95")
	assert.False(t, a.IsSyncPage(list))

	_, _, err = r.Lookup("https://elsewhere.example/")
	assert.Error(t, err)
}

func TestKey_FromQuery(t *testing.T) {
	r := registry(t)
	a, u, err := r.Lookup("https://toons.example/en/viewer?title_no=95&episode_no=12")
	require.NoError(t, err)

	k, errs := Key(a, u, nil)
	assert.Empty(t, errs)
	assert.Equal(t, progress.Key{Page: "toons", Identifier: "95", Chapter: 12}, k)
	assert.True(t, k.Complete())
}

func TestKey_FromPatternAndPage(t *testing.T) {
	r := registry(t)
	a, u, err := r.Lookup("https://read.example/manga/one-piece/1090")
	require.NoError(t, err)

	h1 := domtest.Attr(domtest.El("h1", dom.Rect{}, domtest.Text("Chapter 1090.5")), "class", "chapter")
	k, errs := Key(a, u, page(h1))
	assert.Empty(t, errs)
	assert.Equal(t, "one-piece", k.Identifier)
	assert.Equal(t, 1090.5, k.Chapter)
	assert.True(t, a.IsSyncPage(u))
}

func TestKey_FromAttribute(t *testing.T) {
	r := registry(t)
	a, u, err := r.Lookup("https://attr.example/read/c7")
	require.NoError(t, err)

	comic := domtest.Attr(domtest.El("div", dom.Rect{}), "id", "comic", "data-slug", "solo")
	k, errs := Key(a, u, page(comic))
	assert.Empty(t, errs)
	assert.Equal(t, progress.Key{Page: "attr", Identifier: "solo", Chapter: 7}, k)
}

func TestKey_Partial(t *testing.T) {
	r := registry(t)
	a, u, err := r.Lookup("https://read.example/manga/one-piece/1090")
	require.NoError(t, err)

	k, errs := Key(a, u, page())
	assert.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrNoValue)
	assert.Equal(t, "one-piece", k.Identifier)
	assert.Zero(t, k.Chapter)
	assert.False(t, k.Complete())
}

func TestChapter_NotANumber(t *testing.T) {
	g, err := Compile(Definition{Name: "x", Match: ".", Chapter: Rule{Param: "ep"}})
	require.NoError(t, err)
	u, _ := url.Parse("https://x.example/?ep=final")
	_, err = g.Chapter(u, nil)
	assert.Error(t, err)
}

func TestReaders_IncludeFallbacks(t *testing.T) {
	r := registry(t)
	a, _, err := r.Lookup("https://toons.example/en/viewer?title_no=1&episode_no=1")
	require.NoError(t, err)

	readers := a.Readers()
	require.Len(t, readers, len(progress.Fallbacks)+1)
	assert.Equal(t, progress.Fallbacks[0].Name, readers[0].Name)
	last := readers[len(readers)-1]
	assert.Equal(t, "pager", last.Name)
	assert.Equal(t, "selector:.pager", last.Condition.String())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"no name", Definition{Match: "."}},
		{"dash in name", Definition{Name: "a-b", Match: "."}},
		{"no match", Definition{Name: "a"}},
		{"bad match", Definition{Name: "a", Match: "("}},
		{"bad sync", Definition{Name: "a", Match: ".", Sync: "["}},
		{"bad pattern", Definition{Name: "a", Match: ".", Identifier: Rule{Pattern: "("}}},
		{"group out of range", Definition{Name: "a", Match: ".", Chapter: Rule{Pattern: `c(\d+)`, Group: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.def)
			assert.Error(t, err)
		})
	}
}

func TestNewRegistry_Duplicate(t *testing.T) {
	_, err := NewRegistry([]Definition{{Name: "a", Match: "."}, {Name: "a", Match: "x"}})
	assert.Error(t, err)
}
