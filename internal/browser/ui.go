package browser

import (
	"context"
	"fmt"
)

// UISelectors locate the progress surface on the page.
type UISelectors struct {
	Progress     string `yaml:"progress"`     // bar whose width tracks completion
	Status       string `yaml:"status"`       // carries the loading/done classes
	Sync         string `yaml:"sync"`         // clicked once when finished
	LoadingClass string `yaml:"loadingClass"`
	DoneClass    string `yaml:"doneClass"`
}

// DefaultUISelectors match the surface installed by InjectUI.
func DefaultUISelectors() UISelectors {
	return UISelectors{
		Progress:     ".mp-progress",
		Status:       "#mp-status",
		Sync:         ".mp-sync",
		LoadingClass: "mp-loading",
		DoneClass:    "mp-done",
	}
}

func (s *UISelectors) defaults() {
	d := DefaultUISelectors()
	if s.Progress == "" {
		s.Progress = d.Progress
	}
	if s.Status == "" {
		s.Status = d.Status
	}
	if s.Sync == "" {
		s.Sync = d.Sync
	}
	if s.LoadingClass == "" {
		s.LoadingClass = d.LoadingClass
	}
	if s.DoneClass == "" {
		s.DoneClass = d.DoneClass
	}
}

// UI drives the progress surface of a page. It implements progress.UI.
type UI struct {
	b   *Browser
	sel UISelectors
}

// UI returns the progress surface for the page.
func (b *Browser) UI(sel UISelectors) *UI {
	sel.defaults()
	return &UI{b: b, sel: sel}
}

// Inject adds a minimal fixed progress bar, status element and sync button
// to the page, for readers that have none of their own.
func (u *UI) Inject(ctx context.Context) error {
	_, err := u.b.page.Context(ctx).Eval(`(sel) => {
		if (document.querySelector(sel.status)) return;
		const box = document.createElement('div');
		box.id = sel.status.replace(/^#/, '');
		box.className = sel.loadingClass;
		box.style.cssText = 'position:fixed;left:0;right:0;bottom:0;height:6px;z-index:2147483647;background:rgba(0,0,0,.25)';
		const bar = document.createElement('div');
		bar.className = sel.progress.replace(/^\./, '');
		bar.style.cssText = 'height:100%;width:0;background:#3b82f6;transition:width .3s';
		const sync = document.createElement('button');
		sync.className = sel.sync.replace(/^\./, '');
		sync.style.display = 'none';
		sync.addEventListener('click', () => { box.dataset.synced = 'true'; });
		box.append(bar, sync);
		document.body.appendChild(box);
	}`, map[string]string{
		"status":       u.sel.Status,
		"progress":     u.sel.Progress,
		"sync":         u.sel.Sync,
		"loadingClass": u.sel.LoadingClass,
	})
	if err != nil {
		return fmt.Errorf("browser: inject ui: %w", err)
	}
	return nil
}

// SetProgress sets the bar width to fraction*100%.
func (u *UI) SetProgress(ctx context.Context, fraction float64) error {
	_, err := u.b.page.Context(ctx).Eval(`(sel, pct) => {
		const el = document.querySelector(sel);
		if (el) el.style.width = pct + '%';
	}`, u.sel.Progress, fraction*100)
	if err != nil {
		return fmt.Errorf("browser: set progress: %w", err)
	}
	return nil
}

// ClearStatus removes the loading and done classes.
func (u *UI) ClearStatus(ctx context.Context) error {
	_, err := u.b.page.Context(ctx).Eval(`(sel, loading, done) => {
		const el = document.querySelector(sel);
		if (el) el.classList.remove(loading, done);
	}`, u.sel.Status, u.sel.LoadingClass, u.sel.DoneClass)
	if err != nil {
		return fmt.Errorf("browser: clear status: %w", err)
	}
	return nil
}

// HasDoneMarker reports whether the status element exists.
func (u *UI) HasDoneMarker(ctx context.Context) (bool, error) {
	res, err := u.b.page.Context(ctx).Eval(`(sel) => document.querySelector(sel) !== null`, u.sel.Status)
	if err != nil {
		return false, fmt.Errorf("browser: done marker: %w", err)
	}
	return res.Value.Bool(), nil
}

// MarkDone adds the done class to the status element.
func (u *UI) MarkDone(ctx context.Context) error {
	_, err := u.b.page.Context(ctx).Eval(`(sel, done) => {
		const el = document.querySelector(sel);
		if (el) el.classList.add(done);
	}`, u.sel.Status, u.sel.DoneClass)
	if err != nil {
		return fmt.Errorf("browser: mark done: %w", err)
	}
	return nil
}

// TriggerSync clicks the sync element once.
func (u *UI) TriggerSync(ctx context.Context) error {
	_, err := u.b.page.Context(ctx).Eval(`(sel) => {
		const el = document.querySelector(sel);
		if (el) el.click();
	}`, u.sel.Sync)
	if err != nil {
		return fmt.Errorf("browser: trigger sync: %w", err)
	}
	return nil
}
