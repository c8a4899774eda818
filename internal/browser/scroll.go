package browser

import (
	"context"
	"fmt"

	"github.com/v0xg/mangaprogress/internal/resume"
)

// resolveJS turns an element-child path from <html> into an element. A
// null path means the window scroller.
const resolveJS = `function resolve(path) {
	if (path === null) return window;
	let el = document.documentElement;
	for (const i of path) {
		el = el && el.children[i];
	}
	return el || null;
}`

// ScrollTo scrolls container (nil for the document) to an absolute offset.
func (b *Browser) ScrollTo(ctx context.Context, container []int, top float64, smooth bool) error {
	js := `(path, top, smooth) => {
		` + resolveJS + `
		const target = resolve(path);
		if (!target) return false;
		target.scrollTo({top, behavior: smooth ? 'smooth' : 'instant'});
		return true;
	}`
	res, err := b.page.Context(ctx).Eval(js, container, top, smooth)
	if err != nil {
		return fmt.Errorf("browser: scroll to: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("browser: scroll container %v not found", container)
	}
	return nil
}

// ScrollBy scrolls container (nil for the document) by dy pixels, instantly.
func (b *Browser) ScrollBy(ctx context.Context, container []int, dy float64) error {
	js := `(path, dy) => {
		` + resolveJS + `
		const target = resolve(path);
		if (!target) return false;
		target.scrollBy({top: dy, behavior: 'instant'});
		return true;
	}`
	res, err := b.page.Context(ctx).Eval(js, container, dy)
	if err != nil {
		return fmt.Errorf("browser: scroll by: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("browser: scroll container %v not found", container)
	}
	return nil
}

// The guard listens for input that moves the page. Programmatic scrollTo
// and scrollBy raise none of these events.
const installGuardJS = `() => {
	const keys = new Set(['ArrowUp', 'ArrowDown', 'PageUp', 'PageDown', 'Home', 'End', ' ']);
	const mark = () => { window.__mpUserScrolled = true; };
	const onKey = (e) => { if (keys.has(e.key)) mark(); };
	if (window.__mpGuard) window.__mpGuard.remove();
	window.__mpUserScrolled = false;
	const opts = {passive: true, capture: true};
	for (const t of ['wheel', 'touchstart', 'touchmove', 'mousedown']) window.addEventListener(t, mark, opts);
	window.addEventListener('keydown', onKey, true);
	window.__mpGuard = {
		remove() {
			for (const t of ['wheel', 'touchstart', 'touchmove', 'mousedown']) window.removeEventListener(t, mark, opts);
			window.removeEventListener('keydown', onKey, true);
			delete window.__mpGuard;
		},
	};
}`

type scrollGuard struct {
	b *Browser
}

// GuardUserScroll installs manual-scroll listeners on the page.
func (b *Browser) GuardUserScroll(ctx context.Context) (resume.Guard, error) {
	if _, err := b.page.Context(ctx).Eval(installGuardJS); err != nil {
		return nil, fmt.Errorf("browser: install scroll guard: %w", err)
	}
	return scrollGuard{b: b}, nil
}

func (g scrollGuard) Interrupted(ctx context.Context) (bool, error) {
	res, err := g.b.page.Context(ctx).Eval(`() => window.__mpUserScrolled === true`)
	if err != nil {
		return false, fmt.Errorf("browser: read scroll guard: %w", err)
	}
	return res.Value.Bool(), nil
}

func (g scrollGuard) Release(ctx context.Context) error {
	_, err := g.b.page.Context(ctx).Eval(`() => {
		if (window.__mpGuard) window.__mpGuard.remove();
		delete window.__mpUserScrolled;
	}`)
	if err != nil {
		return fmt.Errorf("browser: release scroll guard: %w", err)
	}
	return nil
}
