// Package collector pulls a single number out of a captured document using a
// declarative rule.
package collector

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/v0xg/mangaprogress/internal/dom"
)

// Mode selects how the raw value is read.
type Mode string

const (
	ModeText       Mode = "text"       // text content of the first match
	ModeAttribute  Mode = "attribute"  // attribute of the first match
	ModeCount      Mode = "count"      // number of matches
	ModeCountAbove Mode = "countAbove" // matches whose top edge is above the reference
)

var (
	ErrNoMatch      = errors.New("collector: selector matched nothing")
	ErrNoRegexMatch = errors.New("collector: regex did not match")
	ErrNotNumber    = errors.New("collector: value is not a finite number")
)

// Config describes how to extract one number.
type Config struct {
	Mode     Mode   `yaml:"mode" json:"mode"`
	Selector string `yaml:"selector" json:"selector"`

	// Attribute names the attribute read in attribute mode.
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`

	// Reference is an optional selector for countAbove. Without it the
	// viewport's vertical centre is the reference line.
	Reference string `yaml:"reference,omitempty" json:"reference,omitempty"`

	Regex string `yaml:"regex,omitempty" json:"regex,omitempty"`
	Group int    `yaml:"group,omitempty" json:"group,omitempty"`
}

// Run executes cfg against doc. It fails on the first problem and never
// retries.
func Run(doc *dom.Document, cfg Config) (float64, error) {
	raw, err := read(doc, cfg)
	if err != nil {
		return 0, err
	}

	if cfg.Regex != "" {
		raw, err = capture(raw, cfg.Regex, cfg.Group)
		if err != nil {
			return 0, err
		}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q", ErrNotNumber, raw)
	}
	return v, nil
}

func read(doc *dom.Document, cfg Config) (string, error) {
	sel := doc.Find(cfg.Selector)

	switch cfg.Mode {
	case ModeText, "":
		if sel.Length() == 0 {
			return "", fmt.Errorf("%w: %s", ErrNoMatch, cfg.Selector)
		}
		return strings.TrimSpace(sel.First().Text()), nil

	case ModeAttribute:
		if sel.Length() == 0 {
			return "", fmt.Errorf("%w: %s", ErrNoMatch, cfg.Selector)
		}
		v, ok := sel.First().Attr(cfg.Attribute)
		if !ok {
			return "", fmt.Errorf("%w: %s[%s]", ErrNoMatch, cfg.Selector, cfg.Attribute)
		}
		return v, nil

	case ModeCount:
		if sel.Length() == 0 {
			return "", fmt.Errorf("%w: %s", ErrNoMatch, cfg.Selector)
		}
		return strconv.Itoa(sel.Length()), nil

	case ModeCountAbove:
		if sel.Length() == 0 {
			return "", fmt.Errorf("%w: %s", ErrNoMatch, cfg.Selector)
		}
		line := doc.Viewport.Height / 2
		if cfg.Reference != "" {
			ref := doc.Find(cfg.Reference)
			if ref.Length() == 0 {
				return "", fmt.Errorf("%w: %s", ErrNoMatch, cfg.Reference)
			}
			line = doc.Box(ref.Nodes[0]).Rect.Top
		}
		n := 0
		for _, node := range sel.Nodes {
			if doc.Box(node).Rect.Top < line {
				n++
			}
		}
		return strconv.Itoa(n), nil

	default:
		return "", fmt.Errorf("collector: unknown mode %q", cfg.Mode)
	}
}

func capture(raw, expr string, group int) (string, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("collector: compile %q: %w", expr, err)
	}
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return "", fmt.Errorf("%w: %q on %q", ErrNoRegexMatch, expr, raw)
	}
	if group < 0 || group >= len(m) {
		return "", fmt.Errorf("%w: group %d of %q", ErrNoRegexMatch, group, expr)
	}
	return m[group], nil
}
