// Package site maps reader URLs to the identity of what is being read and
// to the reader configs that apply there. Sites are described in config,
// never in code.
package site

import (
	"fmt"
	"net/url"

	"github.com/v0xg/mangaprogress/internal/dom"
	"github.com/v0xg/mangaprogress/internal/progress"
)

// Adapter describes one site.
type Adapter interface {
	Name() string
	Match(u *url.URL) bool
	// IsSyncPage reports whether u is a reading page, as opposed to an
	// overview or listing.
	IsSyncPage(u *url.URL) bool
	Identifier(u *url.URL, doc *dom.Document) (string, error)
	Chapter(u *url.URL, doc *dom.Document) (float64, error)
	Readers() []progress.Config
}

// Registry resolves URLs to adapters in declaration order.
type Registry struct {
	adapters []Adapter
}

// NewRegistry compiles defs into a registry.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{}
	seen := make(map[string]bool)
	for _, d := range defs {
		a, err := Compile(d)
		if err != nil {
			return nil, err
		}
		if seen[a.Name()] {
			return nil, fmt.Errorf("site: duplicate site %q", a.Name())
		}
		seen[a.Name()] = true
		r.adapters = append(r.adapters, a)
	}
	return r, nil
}

// Lookup returns the first adapter matching rawURL.
func (r *Registry) Lookup(rawURL string) (Adapter, *url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("site: parse url: %w", err)
	}
	for _, a := range r.adapters {
		if a.Match(u) {
			return a, u, nil
		}
	}
	return nil, u, fmt.Errorf("site: no site matches %s", u.Host)
}

// Names lists the registered sites.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.Name())
	}
	return out
}

// Key builds the progress key for a page. Identity parts that cannot be
// read are left empty.
func Key(a Adapter, u *url.URL, doc *dom.Document) (progress.Key, []error) {
	k := progress.Key{Page: a.Name()}
	var errs []error
	id, err := a.Identifier(u, doc)
	if err != nil {
		errs = append(errs, err)
	}
	k.Identifier = id
	ch, err := a.Chapter(u, doc)
	if err != nil {
		errs = append(errs, err)
	}
	k.Chapter = ch
	return k, errs
}
