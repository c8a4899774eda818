package browser

import (
	"context"
	"fmt"

	"github.com/v0xg/mangaprogress/internal/dom"
)

// snapshotJS serialises the live DOM. Every element child is emitted, so
// child indices match element.children in the page; the contents of
// non-rendered elements are dropped. Text keeps its whitespace so element
// text reads as textContent does.
const snapshotJS = `() => {
	const opaque = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'svg']);
	const zero = {top: 0, left: 0, width: 0, height: 0};

	function walk(el) {
		const cs = getComputedStyle(el);
		const r = el.getBoundingClientRect();
		const attrs = {};
		for (const a of el.attributes) {
			if (a.name !== 'style') attrs[a.name] = a.value.slice(0, 512);
		}
		const node = {
			tag: el.tagName.toLowerCase(),
			attrs,
			rect: {top: r.top, left: r.left, width: r.width, height: r.height},
			style: {
				display: cs.display,
				opacity: cs.opacity,
				backgroundImage: cs.backgroundImage,
				overflow: cs.overflow,
				overflowY: cs.overflowY,
			},
			scrollHeight: el.scrollHeight,
			clientHeight: el.clientHeight,
			scrollTop: el.scrollTop,
			children: [],
		};
		if (opaque.has(el.tagName)) {
			for (const c of el.children) node.children.push({tag: c.tagName.toLowerCase(), rect: zero, style: {display: 'none'}});
			return node;
		}
		for (const c of el.childNodes) {
			if (c.nodeType === Node.ELEMENT_NODE) {
				node.children.push(walk(c));
			} else if (c.nodeType === Node.TEXT_NODE) {
				const t = c.textContent;
				if (t) node.children.push({text: t.trim() ? t.slice(0, 1024) : ' ', rect: zero, style: {}});
			}
		}
		return node;
	}

	return JSON.stringify({
		viewport: {width: window.innerWidth, height: window.innerHeight, scrollY: window.scrollY},
		root: walk(document.documentElement),
	});
}`

// Snapshot captures the current page state.
func (b *Browser) Snapshot(ctx context.Context) (*dom.Document, error) {
	res, err := b.page.Context(ctx).Eval(snapshotJS)
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot: %w", err)
	}
	return dom.Decode([]byte(res.Value.Str()))
}
