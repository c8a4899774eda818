package progress

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/v0xg/mangaprogress/internal/collector"
	"github.com/v0xg/mangaprogress/internal/dom"
)

type conditionKind int

const (
	condAlways conditionKind = iota
	condSelector
	condPredicate
)

// Condition gates a Config. The zero value always holds.
type Condition struct {
	kind     conditionKind
	selector string
	fn       func(*dom.Document) bool
}

// Always returns a condition that always holds.
func Always() Condition { return Condition{} }

// SelectorPresent holds when selector matches at least one element.
func SelectorPresent(selector string) Condition {
	return Condition{kind: condSelector, selector: selector}
}

// Predicate holds when fn returns true.
func Predicate(fn func(*dom.Document) bool) Condition {
	return Condition{kind: condPredicate, fn: fn}
}

// Holds evaluates the condition against doc.
func (c Condition) Holds(doc *dom.Document) bool {
	switch c.kind {
	case condSelector:
		return doc.Find(c.selector).Length() > 0
	case condPredicate:
		return c.fn != nil && c.fn(doc)
	default:
		return true
	}
}

func (c Condition) String() string {
	switch c.kind {
	case condSelector:
		return "selector:" + c.selector
	case condPredicate:
		return "predicate"
	default:
		return "always"
	}
}

// IsZero reports whether the condition always holds.
func (c Condition) IsZero() bool { return c.kind == condAlways }

// MarshalYAML writes a selector condition as its selector string.
// Predicates cannot be serialised and are written as absent.
func (c Condition) MarshalYAML() (interface{}, error) {
	if c.kind == condSelector {
		return c.selector, nil
	}
	return nil, nil
}

// UnmarshalYAML reads a selector string; an empty or null value means always.
func (c *Condition) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("progress: condition must be a selector string: %w", err)
	}
	if s == "" {
		*c = Always()
		return nil
	}
	*c = SelectorPresent(s)
	return nil
}

// MarshalJSON writes a selector condition as a string and anything else as null.
func (c Condition) MarshalJSON() ([]byte, error) {
	if c.kind == condSelector {
		return json.Marshal(c.selector)
	}
	return []byte("null"), nil
}

// UnmarshalJSON reads a selector string or null.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("progress: condition must be a selector string: %w", err)
	}
	if s == nil || *s == "" {
		*c = Always()
		return nil
	}
	*c = SelectorPresent(*s)
	return nil
}

// Config is one named strategy for reading (current, total).
type Config struct {
	Name      string           `yaml:"name,omitempty" json:"name,omitempty"`
	Condition Condition        `yaml:"condition,omitempty" json:"condition,omitempty"`
	Current   collector.Config `yaml:"current" json:"current"`
	Total     collector.Config `yaml:"total" json:"total"`
}

// Fallbacks are readers that can be embedded on top of any site.
var Fallbacks = []Config{
	{
		Name:      "amr",
		Condition: SelectorPresent("#amrapp"),
		Current: collector.Config{
			Mode:     collector.ModeText,
			Selector: ".amr-pages-nav .text-h6",
			Regex:    `(\d+) /`,
			Group:    1,
		},
		Total: collector.Config{
			Mode:     collector.ModeText,
			Selector: ".amr-pages-nav .text-h6",
			Regex:    `/ (\d+)`,
			Group:    1,
		},
	},
}

// WithFallbacks returns Fallbacks followed by site.
func WithFallbacks(site []Config) []Config {
	out := make([]Config, 0, len(Fallbacks)+len(site))
	out = append(out, Fallbacks...)
	return append(out, site...)
}
