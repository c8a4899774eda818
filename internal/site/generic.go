package site

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/v0xg/mangaprogress/internal/dom"
	"github.com/v0xg/mangaprogress/internal/progress"
)

// Definition is the YAML form of a site.
type Definition struct {
	Name       string            `yaml:"name"`
	Match      string            `yaml:"match"` // regex over the full URL
	Sync       string            `yaml:"sync,omitempty"`
	Identifier Rule              `yaml:"identifier"`
	Chapter    Rule              `yaml:"chapter"`
	Readers    []progress.Config `yaml:"readers,omitempty"`
}

// Rule reads one identity value from the URL or the page. Exactly one
// source is used, checked in this order: Param, Pattern, Selector.
type Rule struct {
	Param     string `yaml:"param,omitempty"`     // query parameter
	Pattern   string `yaml:"pattern,omitempty"`   // regex over the full URL
	Group     int    `yaml:"group,omitempty"`     // capture group of Pattern. Default: 1
	Selector  string `yaml:"selector,omitempty"`  // element on the page
	Attribute string `yaml:"attribute,omitempty"` // read instead of the element text
}

var ErrNoValue = errors.New("site: value not found")

var number = regexp.MustCompile(`\d+(?:\.\d+)?`)

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

func (r compiledRule) extract(u *url.URL, doc *dom.Document) (string, error) {
	var v string
	switch {
	case r.Param != "":
		v = u.Query().Get(r.Param)
	case r.re != nil:
		m := r.re.FindStringSubmatch(u.String())
		if m != nil && r.Group < len(m) {
			v = m[r.Group]
		}
	case r.Selector != "":
		if doc == nil {
			return "", fmt.Errorf("%w: %s needs the page", ErrNoValue, r.Selector)
		}
		sel := doc.Find(r.Selector).First()
		if r.Attribute != "" {
			v, _ = sel.Attr(r.Attribute)
		} else {
			v = sel.Text()
		}
	default:
		return "", fmt.Errorf("%w: no rule configured", ErrNoValue)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrNoValue
	}
	return v, nil
}

// Generic is an Adapter driven entirely by a Definition.
type Generic struct {
	def        Definition
	match      *regexp.Regexp
	sync       *regexp.Regexp
	identifier compiledRule
	chapter    compiledRule
}

// Compile validates d and builds its adapter.
func Compile(d Definition) (*Generic, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("site: definition without a name")
	}
	// The store key splits the page name off at the first dash.
	if strings.Contains(d.Name, "-") {
		return nil, fmt.Errorf("site: name %q must not contain '-'", d.Name)
	}
	if d.Match == "" {
		return nil, fmt.Errorf("site %s: match is required", d.Name)
	}

	g := &Generic{def: d}
	var err error
	if g.match, err = regexp.Compile(d.Match); err != nil {
		return nil, fmt.Errorf("site %s: match: %w", d.Name, err)
	}
	if d.Sync != "" {
		if g.sync, err = regexp.Compile(d.Sync); err != nil {
			return nil, fmt.Errorf("site %s: sync: %w", d.Name, err)
		}
	}
	if g.identifier, err = compileRule(d.Identifier); err != nil {
		return nil, fmt.Errorf("site %s: identifier: %w", d.Name, err)
	}
	if g.chapter, err = compileRule(d.Chapter); err != nil {
		return nil, fmt.Errorf("site %s: chapter: %w", d.Name, err)
	}
	return g, nil
}

func compileRule(r Rule) (compiledRule, error) {
	c := compiledRule{Rule: r}
	if r.Pattern == "" {
		return c, nil
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return c, err
	}
	if c.Group == 0 && re.NumSubexp() > 0 {
		c.Group = 1
	}
	if c.Group > re.NumSubexp() {
		return c, fmt.Errorf("group %d out of range", c.Group)
	}
	c.re = re
	return c, nil
}

func (g *Generic) Name() string { return g.def.Name }

func (g *Generic) Match(u *url.URL) bool { return g.match.MatchString(u.String()) }

// IsSyncPage holds for every matched URL when no sync pattern is set.
func (g *Generic) IsSyncPage(u *url.URL) bool {
	return g.sync == nil || g.sync.MatchString(u.String())
}

func (g *Generic) Identifier(u *url.URL, doc *dom.Document) (string, error) {
	v, err := g.identifier.extract(u, doc)
	if err != nil {
		return "", fmt.Errorf("site %s: identifier: %w", g.def.Name, err)
	}
	return v, nil
}

// Chapter reads the chapter and parses the first number in it, so values
// like "Episode 12.5" work.
func (g *Generic) Chapter(u *url.URL, doc *dom.Document) (float64, error) {
	v, err := g.chapter.extract(u, doc)
	if err != nil {
		return 0, fmt.Errorf("site %s: chapter: %w", g.def.Name, err)
	}
	m := number.FindString(v)
	if m == "" {
		return 0, fmt.Errorf("site %s: chapter %q is not a number", g.def.Name, v)
	}
	ch, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("site %s: chapter: %w", g.def.Name, err)
	}
	return ch, nil
}

// Readers returns the site's configs with the built-in fallbacks first.
func (g *Generic) Readers() []progress.Config {
	return progress.WithFallbacks(g.def.Readers)
}
