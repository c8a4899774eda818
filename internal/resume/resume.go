// Package resume brings the viewport back to a saved reading position.
package resume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/net/html"

	"github.com/v0xg/mangaprogress/internal/dom"
	"github.com/v0xg/mangaprogress/internal/locator"
	"github.com/v0xg/mangaprogress/internal/position"
	"github.com/v0xg/mangaprogress/internal/progress"
)

// ErrTargetNotFound is returned when the saved element never resolved to
// something with a box.
var ErrTargetNotFound = errors.New("resume: target element not found")

// Viewport is the scrollable page. A nil container path means the
// document scroller; other paths are absolute from the document element.
type Viewport interface {
	Snapshot(ctx context.Context) (*dom.Document, error)
	ScrollTo(ctx context.Context, container []int, top float64, smooth bool) error
	ScrollBy(ctx context.Context, container []int, dy float64) error
	GuardUserScroll(ctx context.Context) (Guard, error)
}

// Guard observes manual scrolling while a resume runs.
type Guard interface {
	Interrupted(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Prober reports live progress, e.g. *progress.Tracker.
type Prober interface {
	Refresh(ctx context.Context) (*progress.Result, error)
}

// Policy names how a resume moves the viewport.
type Policy string

const (
	PolicyGeometry Policy = "geometry"
	PolicyIndex    Policy = "index"
)

// Status is how a resume ended.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusExhausted   Status = "exhausted"
)

// Outcome summarises a resume.
type Outcome struct {
	Policy Policy
	Status Status
	Steps  int
	Target float64
}

// Options tunes both policies. Zero fields take the defaults.
type Options struct {
	Locator *locator.Locator

	Attempts int           // geometry corrections. Default: 6
	Interval time.Duration // between corrections. Default: 500ms

	Chunk         float64       // pixels per frame. Default: 100
	FrameInterval time.Duration // Default: 16ms
	MaxFrames     int           // Default: 2000

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Locator == nil {
		o.Locator = locator.New(locator.Config{})
	}
	if o.Attempts <= 0 {
		o.Attempts = 6
	}
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if o.Chunk <= 0 {
		o.Chunk = 100
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = 16 * time.Millisecond
	}
	if o.MaxFrames <= 0 {
		o.MaxFrames = 2000
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Engine runs resumes against one Viewport.
type Engine struct {
	vp     Viewport
	opts   Options
	logger *slog.Logger
}

// New creates an Engine.
func New(vp Viewport, opts Options) *Engine {
	opts.defaults()
	return &Engine{vp: vp, opts: opts, logger: opts.Logger}
}

// Resume restores saved: by geometry when it carries a structural anchor,
// else by index through p. A nil p with no anchor is an error.
func (e *Engine) Resume(ctx context.Context, saved position.Saved, p Prober) (Outcome, error) {
	if saved.HasAnchor() {
		return e.ByGeometry(ctx, saved.StructuralPath, *saved.RelativeOffset)
	}
	if p == nil {
		return Outcome{}, fmt.Errorf("resume: no anchor and no progress source")
	}
	return e.ByIndex(ctx, saved.Current, p)
}

// ByGeometry scrolls so the viewport centre lands at offset inside the
// element at path, reissuing the correction while layout settles.
func (e *Engine) ByGeometry(ctx context.Context, path []int, offset float64) (Outcome, error) {
	out := Outcome{Policy: PolicyGeometry}

	guard, err := e.vp.GuardUserScroll(ctx)
	if err != nil {
		return out, fmt.Errorf("resume: install guard: %w", err)
	}
	defer e.release(ctx, guard)

	scrolled := false
	for attempt := 0; attempt < e.opts.Attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, e.opts.Interval); err != nil {
				return out, err
			}
		}
		if e.interrupted(ctx, guard) {
			out.Status = StatusInterrupted
			return out, nil
		}

		doc, err := e.vp.Snapshot(ctx)
		if err != nil {
			e.logger.Debug("resume: snapshot", "attempt", attempt+1, "error", err)
			continue
		}
		container, top, ok := e.geometryTarget(doc, path, offset)
		if !ok {
			e.logger.Debug("resume: target has no box yet", "attempt", attempt+1)
			continue
		}
		if err := e.vp.ScrollTo(ctx, container, top, true); err != nil {
			return out, fmt.Errorf("resume: scroll: %w", err)
		}
		scrolled = true
		out.Steps++
		out.Target = top
	}

	if !scrolled {
		return out, ErrTargetNotFound
	}
	out.Status = StatusCompleted
	e.logger.Info("resume: restored position", "target", out.Target, "corrections", out.Steps)
	return out, nil
}

// geometryTarget computes the scroll container path and the absolute
// scroll offset for one correction.
func (e *Engine) geometryTarget(doc *dom.Document, path []int, offset float64) ([]int, float64, bool) {
	root := e.opts.Locator.LongScrollRoot(doc)
	if root == nil {
		root = doc.Root()
	}
	target := position.Decode(root, path)
	rect := doc.Box(target).Rect
	if (target == root && len(path) > 0) || rect.Height <= 0 {
		return nil, 0, false
	}

	// Offsets are saved against the viewport centre, so the delta is the
	// same whichever element scrolls.
	var container []int
	current := doc.Viewport.ScrollY
	if sc := ScrollableAncestor(doc, target); sc != nil {
		container = position.Encode(doc.Root(), sc)
		current = doc.Box(sc).ScrollTop
	}

	top := current + rect.Top + rect.Height*offset - doc.Viewport.Height/2
	return container, math.Max(0, top), true
}

// ScrollableAncestor returns the nearest ancestor of n with a scroll
// affordance and overflowing content, or nil for the document scroller.
func ScrollableAncestor(doc *dom.Document, n *html.Node) *html.Node {
	for p := dom.Parent(n); p != nil; p = dom.Parent(p) {
		if p == doc.Root() || p == doc.Body() {
			return nil
		}
		box := doc.Box(p)
		if box.Style.Scrollable() && box.Overflows() {
			return p
		}
	}
	return nil
}

// ByIndex scrolls the long-scroll surface one chunk per frame until p
// reports at least target.
func (e *Engine) ByIndex(ctx context.Context, target float64, p Prober) (Outcome, error) {
	out := Outcome{Policy: PolicyIndex, Target: target}

	guard, err := e.vp.GuardUserScroll(ctx)
	if err != nil {
		return out, fmt.Errorf("resume: install guard: %w", err)
	}
	defer e.release(ctx, guard)

	container := e.indexSurface(ctx)

	for frame := 0; frame < e.opts.MaxFrames; frame++ {
		if e.interrupted(ctx, guard) {
			out.Status = StatusInterrupted
			return out, nil
		}
		res, err := p.Refresh(ctx)
		if err != nil {
			return out, fmt.Errorf("resume: read progress: %w", err)
		}
		if res.Current >= target {
			out.Status = StatusCompleted
			e.logger.Info("resume: reached saved page", "current", res.Current, "frames", out.Steps)
			return out, nil
		}
		if err := e.vp.ScrollBy(ctx, container, e.opts.Chunk); err != nil {
			return out, fmt.Errorf("resume: scroll: %w", err)
		}
		out.Steps++
		if err := sleep(ctx, e.opts.FrameInterval); err != nil {
			return out, err
		}
	}

	out.Status = StatusExhausted
	e.logger.Warn("resume: gave up before reaching saved page", "target", target, "frames", out.Steps)
	return out, nil
}

// indexSurface returns the inner container holding the strip, or nil to
// scroll the document.
func (e *Engine) indexSurface(ctx context.Context) []int {
	doc, err := e.vp.Snapshot(ctx)
	if err != nil {
		e.logger.Debug("resume: snapshot", "error", err)
		return nil
	}
	root := e.opts.Locator.LongScrollRoot(doc)
	if root == nil || root == doc.Root() || root == doc.Body() {
		return nil
	}
	return position.Encode(doc.Root(), root)
}

func (e *Engine) interrupted(ctx context.Context, g Guard) bool {
	hit, err := g.Interrupted(ctx)
	if err != nil {
		e.logger.Debug("resume: guard check", "error", err)
		return false
	}
	if hit {
		e.logger.Info("resume: user scrolled, stopping")
	}
	return hit
}

func (e *Engine) release(ctx context.Context, g Guard) {
	if err := g.Release(context.WithoutCancel(ctx)); err != nil {
		e.logger.Debug("resume: release guard", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
