package resume

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/mangaprogress/internal/dom"
	"github.com/v0xg/mangaprogress/internal/dom/domtest"
	"github.com/v0xg/mangaprogress/internal/locator"
	"github.com/v0xg/mangaprogress/internal/position"
	"github.com/v0xg/mangaprogress/internal/progress"
)

// fakeViewport renders a page for the current scroll offset. Scrolls are
// applied instantly, to the document or to the one inner container.
type fakeViewport struct {
	mu        sync.Mutex
	render    func(scroll float64) *dom.Document
	scroll    float64
	scrollTos []scrollCall
	scrollBys int
	byPath    []int

	interruptAfter int // guard checks before reporting a user scroll; 0 never
	checks         int
	released       bool
}

type scrollCall struct {
	container []int
	top       float64
	smooth    bool
}

func (f *fakeViewport) Snapshot(context.Context) (*dom.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.render(f.scroll), nil
}

func (f *fakeViewport) ScrollTo(_ context.Context, container []int, top float64, smooth bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrollTos = append(f.scrollTos, scrollCall{container, top, smooth})
	f.scroll = top
	return nil
}

func (f *fakeViewport) ScrollBy(_ context.Context, container []int, dy float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrollBys++
	f.byPath = container
	f.scroll += dy
	return nil
}

func (f *fakeViewport) GuardUserScroll(context.Context) (Guard, error) { return f, nil }

func (f *fakeViewport) Interrupted(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.interruptAfter > 0 && f.checks > f.interruptAfter, nil
}

func (f *fakeViewport) Release(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
	return nil
}

var view = dom.Viewport{Width: 1280, Height: 1000}

func documentStrip(scroll float64) *dom.Document {
	v := view
	v.ScrollY = scroll
	return domtest.Strip(v, 10, 1000)
}

// containerStrip is a fixed-height page whose reader div scrolls instead.
func containerStrip(scroll float64) *dom.Document {
	imgs := make([]dom.Node, 0, 8)
	for i := 0; i < 8; i++ {
		imgs = append(imgs, domtest.El("img", dom.Rect{Top: 50 + float64(i*1000) - scroll, Width: 800, Height: 1000}))
	}
	reader := domtest.Scroll(domtest.El("div", dom.Rect{Top: 50, Width: 800, Height: 900}, imgs...), 8000, 900, scroll)
	return domtest.Page(view, 1000, domtest.El("nav", dom.Rect{Height: 50}), reader)
}

func fast() Options {
	return Options{Interval: time.Millisecond, FrameInterval: time.Microsecond}
}

func offset(f float64) *float64 { return &f }

func TestByGeometry_Document(t *testing.T) {
	fv := &fakeViewport{render: documentStrip}
	out, err := New(fv, fast()).ByGeometry(context.Background(), []int{0, 1, 3}, 0.4)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 6, out.Steps)
	// Image 4 starts at 3100; 40% in is 3500, centred by scrolling to 3000.
	assert.InDelta(t, 3000.0, out.Target, 1e-9)
	require.Len(t, fv.scrollTos, 6)
	for _, c := range fv.scrollTos {
		assert.Nil(t, c.container)
		assert.True(t, c.smooth)
		assert.InDelta(t, 3000.0, c.top, 1e-9, "corrections are stable once settled")
	}
	assert.True(t, fv.released)
}

func TestByGeometry_Container(t *testing.T) {
	fv := &fakeViewport{render: containerStrip, scroll: 700}
	out, err := New(fv, fast()).ByGeometry(context.Background(), []int{3}, 0.5)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, out.Status)
	// 700 + (50+3000-700) + 500 - 500
	assert.InDelta(t, 3050.0, out.Target, 1e-9)
	assert.Equal(t, []int{0, 1}, fv.scrollTos[0].container)
}

func TestByGeometry_ContainerRoundTrip(t *testing.T) {
	loc := locator.New(locator.Config{})
	m, ok := loc.Locate(containerStrip(2700))
	require.True(t, ok)
	path := position.Encode(m.Root, m.Element)
	require.Equal(t, []int{3}, path)
	require.InDelta(t, 0.15, m.RelativeOffset, 1e-9)

	fv := &fakeViewport{render: containerStrip}
	opts := fast()
	opts.Locator = loc
	_, err := New(fv, opts).ByGeometry(context.Background(), path, m.RelativeOffset)
	require.NoError(t, err)
	assert.InDelta(t, 2700.0, fv.scroll, 1e-9)

	again, ok := loc.Locate(containerStrip(fv.scroll))
	require.True(t, ok)
	assert.Equal(t, path, position.Encode(again.Root, again.Element))
	assert.InDelta(t, m.RelativeOffset, again.RelativeOffset, 1e-9)
}

func TestByGeometry_ClampsAtTop(t *testing.T) {
	fv := &fakeViewport{render: documentStrip}
	out, err := New(fv, fast()).ByGeometry(context.Background(), []int{0, 1, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Target)
}

func TestByGeometry_UserScrollCancels(t *testing.T) {
	fv := &fakeViewport{render: documentStrip, interruptAfter: 2}
	out, err := New(fv, fast()).ByGeometry(context.Background(), []int{0, 1, 3}, 0.4)
	require.NoError(t, err)

	assert.Equal(t, StatusInterrupted, out.Status)
	assert.Len(t, fv.scrollTos, 2)
	assert.True(t, fv.released)
}

func TestByGeometry_TargetMissing(t *testing.T) {
	fv := &fakeViewport{render: documentStrip}
	_, err := New(fv, fast()).ByGeometry(context.Background(), []int{7, 7}, 0.5)
	assert.ErrorIs(t, err, ErrTargetNotFound)
	assert.Empty(t, fv.scrollTos)
}

// stripProber derives the page index from the fake viewport's scroll.
type stripProber struct{ fv *fakeViewport }

func (p stripProber) Refresh(ctx context.Context) (*progress.Result, error) {
	doc, _ := p.fv.Snapshot(ctx)
	return &progress.Result{Current: math.Floor(doc.Viewport.ScrollY/1000) + 1, Total: 10}, nil
}

func TestByIndex(t *testing.T) {
	fv := &fakeViewport{render: documentStrip}
	out, err := New(fv, fast()).ByIndex(context.Background(), 5, stripProber{fv})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 40, out.Steps)
	assert.Equal(t, 40, fv.scrollBys)
	assert.Nil(t, fv.byPath)
	assert.True(t, fv.released)
}

func TestByIndex_Bounded(t *testing.T) {
	fv := &fakeViewport{render: documentStrip}
	opts := fast()
	opts.MaxFrames = 5
	out, err := New(fv, opts).ByIndex(context.Background(), 9, stripProber{fv})
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, out.Status)
	assert.Equal(t, 5, fv.scrollBys)
}

func TestByIndex_UserScrollCancels(t *testing.T) {
	fv := &fakeViewport{render: documentStrip, interruptAfter: 3}
	out, err := New(fv, fast()).ByIndex(context.Background(), 9, stripProber{fv})
	require.NoError(t, err)
	assert.Equal(t, StatusInterrupted, out.Status)
	assert.Equal(t, 3, fv.scrollBys)
}

// offsetProber reads the page index straight from the fake's scroll offset.
type offsetProber struct{ fv *fakeViewport }

func (p offsetProber) Refresh(context.Context) (*progress.Result, error) {
	p.fv.mu.Lock()
	defer p.fv.mu.Unlock()
	return &progress.Result{Current: math.Floor(p.fv.scroll/1000) + 1, Total: 8}, nil
}

func TestByIndex_Container(t *testing.T) {
	fv := &fakeViewport{render: containerStrip}
	out, err := New(fv, fast()).ByIndex(context.Background(), 3, offsetProber{fv})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 20, out.Steps)
	assert.Equal(t, []int{0, 1}, fv.byPath)
}

type failingProber struct{}

func (failingProber) Refresh(context.Context) (*progress.Result, error) {
	return nil, progress.ErrNotFound
}

func TestByIndex_ProgressLost(t *testing.T) {
	fv := &fakeViewport{render: documentStrip}
	_, err := New(fv, fast()).ByIndex(context.Background(), 3, failingProber{})
	assert.True(t, errors.Is(err, progress.ErrNotFound))
}

func TestResume_PicksPolicy(t *testing.T) {
	ctx := context.Background()

	fv := &fakeViewport{render: documentStrip}
	out, err := New(fv, fast()).Resume(ctx, position.Saved{Current: 4, Total: 10, StructuralPath: []int{0, 1, 3}, RelativeOffset: offset(0.4)}, nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyGeometry, out.Policy)

	fv = &fakeViewport{render: documentStrip}
	out, err = New(fv, fast()).Resume(ctx, position.Saved{Current: 2, Total: 10}, stripProber{fv})
	require.NoError(t, err)
	assert.Equal(t, PolicyIndex, out.Policy)
	assert.Equal(t, 10, out.Steps)

	_, err = New(fv, fast()).Resume(ctx, position.Saved{Current: 2, Total: 10}, nil)
	assert.Error(t, err)
}

func TestScrollableAncestor(t *testing.T) {
	doc := containerStrip(0)
	img := doc.Find("img").Get(2)
	sc := ScrollableAncestor(doc, img)
	require.NotNil(t, sc)
	assert.Equal(t, "div", sc.Data)

	doc = documentStrip(0)
	assert.Nil(t, ScrollableAncestor(doc, doc.Find("img").Get(0)))
}
