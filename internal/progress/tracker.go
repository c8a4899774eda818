// Package progress reads (current, total) reading progress out of captured
// pages, turns it into a completion verdict and drives a once-a-second poll
// loop with UI and persistence side effects.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/v0xg/mangaprogress/internal/dom"
)

// ErrNotFound is returned when no configured strategy produced a result.
var ErrNotFound = errors.New("progress: progress not found")

// ErrNoProgress is returned by SaveNow when there is no current result.
var ErrNoProgress = errors.New("progress: no current result")

// Source captures the page being tracked.
type Source interface {
	Snapshot(ctx context.Context) (*dom.Document, error)
}

// UI is the on-page surface the tracker drives but does not own.
type UI interface {
	SetProgress(ctx context.Context, fraction float64) error
	ClearStatus(ctx context.Context) error
	HasDoneMarker(ctx context.Context) (bool, error)
	MarkDone(ctx context.Context) error
	TriggerSync(ctx context.Context) error
}

// Saver persists the reading position for a key.
type Saver interface {
	SavePosition(ctx context.Context, key Key, doc *dom.Document, res Result) error
}

// State is the tracker lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Tracker.
type Options struct {
	Interval       time.Duration // Default: 1s
	Settings       Settings      // Default: 90%
	UI             UI            // Default: NopUI
	Saver          Saver         // nil disables position saving
	IdentityPolicy IdentityPolicy
	OnFinish       func(Result)
	Logger         *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Settings == nil {
		o.Settings = StaticSettings(90)
	}
	if o.UI == nil {
		o.UI = NopUI{}
	}
	if o.IdentityPolicy == "" {
		o.IdentityPolicy = IdentityOverwrite
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Tracker polls a Source through a Resolver. Call Stop before starting it
// again; two trackers must not share a key.
type Tracker struct {
	resolver *Resolver
	source   Source
	opts     Options
	logger   *slog.Logger

	mu     sync.Mutex
	key    Key
	state  State
	result *Result
	gen    uint64
	cancel context.CancelFunc
	start  *latch
}

// NewTracker creates an idle Tracker.
func NewTracker(resolver *Resolver, source Source, key Key, opts Options) *Tracker {
	opts.defaults()
	return &Tracker{
		resolver: resolver,
		source:   source,
		opts:     opts,
		key:      key,
		logger:   opts.Logger.With("session", uuid.NewString(), "page", key.Page),
	}
}

// Start arms the poll loop and blocks until the first tick settles: true on
// a first success, ErrNotFound when the first tick finds nothing, and false
// with a nil error if Stop is called first. Later ticks never change the
// outcome; they only feed UI and persistence.
func (t *Tracker) Start(ctx context.Context) (bool, error) {
	t.mu.Lock()
	t.stopLocked()
	t.gen++
	gen := t.gen
	l := newLatch()
	t.start = l
	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.state = StateRunning
	t.mu.Unlock()

	go t.loop(loopCtx, gen)

	select {
	case out := <-l.done:
		return out.ok, out.err
	case <-ctx.Done():
		t.Stop()
		return false, ctx.Err()
	}
}

// Stop halts the poll loop. It is idempotent and safe at any time; once it
// returns no further UI or persistence side effects happen.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	t.haltLocked()
	t.gen++
	if t.start != nil {
		t.start.settle(false, nil)
	}
	if t.state != StateIdle {
		t.state = StateStopped
	}
}

func (t *Tracker) haltLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Tracker) loop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(t.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.tick(ctx, gen) {
				return
			}
		}
	}
}

// tick runs one evaluation and reports whether the loop should continue.
func (t *Tracker) tick(ctx context.Context, gen uint64) bool {
	var res *Result
	doc, err := t.source.Snapshot(ctx)
	if err != nil {
		t.logger.Warn("tracker: snapshot failed", "error", err)
	} else {
		res = t.resolver.Resolve(doc)
	}

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return false
	}

	t.result = res
	if res == nil {
		t.state = StateFailed
		t.haltLocked()
		t.start.settle(false, ErrNotFound)
		t.mu.Unlock()
		t.logger.Warn("tracker: progress not found, stopping")
		return false
	}

	t.state = StateSucceeded
	t.start.settle(true, nil)
	finished := t.applyLocked(ctx, doc, *res)
	if finished {
		t.state = StateStopped
		t.haltLocked()
	}
	t.mu.Unlock()

	if finished {
		t.logger.Info("tracker: chapter finished", "current", res.Current, "total", res.Total)
		if t.opts.OnFinish != nil {
			t.opts.OnFinish(*res)
		}
		return false
	}
	return true
}

// applyLocked drives UI and persistence for a fresh result and reports
// whether it is finished.
func (t *Tracker) applyLocked(ctx context.Context, doc *dom.Document, res Result) bool {
	pct := t.opts.Settings.CompletionPercentage()
	ui := t.opts.UI

	if err := ui.SetProgress(ctx, Percentage(res, pct)); err != nil {
		t.logger.Debug("tracker: set progress", "error", err)
	}
	if err := ui.ClearStatus(ctx); err != nil {
		t.logger.Debug("tracker: clear status", "error", err)
	}

	if t.opts.Saver != nil && t.key.Complete() && res.Current > 1 {
		if err := t.opts.Saver.SavePosition(ctx, t.key, doc, res); err != nil {
			t.logger.Warn("tracker: save position", "key", t.key.String(), "error", err)
		}
	}

	finished := Finished(res, pct)
	t.logger.Debug("tracker: tick", "current", res.Current, "total", res.Total, "finished", finished)
	if !finished {
		return false
	}

	has, err := ui.HasDoneMarker(ctx)
	if err != nil {
		t.logger.Debug("tracker: done marker", "error", err)
	}
	if has {
		if err := ui.MarkDone(ctx); err != nil {
			t.logger.Warn("tracker: mark done", "error", err)
		}
		if err := ui.TriggerSync(ctx); err != nil {
			t.logger.Warn("tracker: trigger sync", "error", err)
		}
	}
	return true
}

// SaveNow captures the page and saves the position for the current result.
func (t *Tracker) SaveNow(ctx context.Context) error {
	if t.opts.Saver == nil {
		return nil
	}
	doc, err := t.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("tracker: snapshot: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		return ErrNoProgress
	}
	if !t.key.Complete() {
		return fmt.Errorf("tracker: incomplete key %s", t.key.String())
	}
	return t.opts.Saver.SavePosition(ctx, t.key, doc, *t.result)
}

// Refresh resolves progress immediately, outside the tick schedule. A
// result is recorded only while the tracker is running; no UI or
// persistence side effects happen.
func (t *Tracker) Refresh(ctx context.Context) (*Result, error) {
	res, err := t.Probe(ctx)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	if t.state == StateRunning || t.state == StateSucceeded {
		r := *res
		t.result = &r
	}
	t.mu.Unlock()
	return res, nil
}

// Probe resolves progress on a fresh snapshot without touching tracker state.
func (t *Tracker) Probe(ctx context.Context) (*Result, error) {
	doc, err := t.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracker: snapshot: %w", err)
	}
	res := t.resolver.Resolve(doc)
	if res == nil {
		return nil, ErrNotFound
	}
	return res, nil
}

// Progress returns a copy of the latest result, or nil.
func (t *Tracker) Progress() *Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		return nil
	}
	r := *t.result
	return &r
}

// Successful reports whether the latest tick produced a result.
func (t *Tracker) Successful() bool {
	return t.Progress() != nil
}

// Percentage is the completion fraction of the latest result.
func (t *Tracker) Percentage() (float64, bool) {
	r := t.Progress()
	if r == nil {
		return 0, false
	}
	return Percentage(*r, t.opts.Settings.CompletionPercentage()), true
}

// Finished reports whether the latest result reached the completion limit.
func (t *Tracker) Finished() bool {
	r := t.Progress()
	if r == nil {
		return false
	}
	return Finished(*r, t.opts.Settings.CompletionPercentage())
}

// State returns the lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Key returns the identity the tracker saves under.
func (t *Tracker) Key() Key {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.key
}

// SetIdentifier updates the identifier according to the identity policy.
func (t *Tracker) SetIdentifier(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.opts.IdentityPolicy == IdentitySetOnce && t.key.Identifier != "" {
		return
	}
	t.key.Identifier = id
}

// SetChapter updates the chapter according to the identity policy.
func (t *Tracker) SetChapter(ch float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.opts.IdentityPolicy == IdentitySetOnce && t.key.Chapter != 0 {
		return
	}
	t.key.Chapter = ch
}

type outcome struct {
	ok  bool
	err error
}

// latch settles exactly once; later settles are ignored.
type latch struct {
	once sync.Once
	done chan outcome
}

func newLatch() *latch {
	return &latch{done: make(chan outcome, 1)}
}

func (l *latch) settle(ok bool, err error) {
	l.once.Do(func() { l.done <- outcome{ok: ok, err: err} })
}

// NopUI ignores every call.
type NopUI struct{}

func (NopUI) SetProgress(context.Context, float64) error { return nil }
func (NopUI) ClearStatus(context.Context) error { return nil }
func (NopUI) HasDoneMarker(context.Context) (bool, error) { return false, nil }
func (NopUI) MarkDone(context.Context) error { return nil }
func (NopUI) TriggerSync(context.Context) error { return nil }
