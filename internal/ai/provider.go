// Package ai asks a language model to propose reader configurations for a
// page, then keeps the proposals that actually resolve on the page.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/v0xg/mangaprogress/internal/dom"
	"github.com/v0xg/mangaprogress/internal/progress"
)

// Provider proposes reader configs for a surveyed page.
type Provider interface {
	SuggestReaders(ctx context.Context, pm *PageMap) ([]progress.Config, error)
}

// ProviderConfig selects and authenticates a provider.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"baseURL"`
}

// NewProvider creates a provider by name.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case "", "claude", "anthropic":
		return NewClaudeProvider(cfg)
	case "openai", "gpt":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", cfg.Name)
	}
}

// Suggestion is a proposed config that resolved on the page.
type Suggestion struct {
	Config progress.Config
	Result progress.Result
}

// Validate runs each config alone against doc and splits them into the
// ones that resolve and the ones that don't.
func Validate(doc *dom.Document, configs []progress.Config) (working []Suggestion, rejected []progress.Config) {
	for _, c := range configs {
		res := progress.NewResolver([]progress.Config{c}, nil).Resolve(doc)
		if res == nil {
			rejected = append(rejected, c)
			continue
		}
		working = append(working, Suggestion{Config: c, Result: *res})
	}
	return working, rejected
}

// parseReadersJSON extracts and parses a JSON array from a response that
// may contain surrounding text.
func parseReadersJSON(response string) ([]progress.Config, error) {
	var configs []progress.Config
	if err := json.Unmarshal([]byte(response), &configs); err == nil {
		return configs, nil
	}

	start := strings.Index(response, "[")
	if start == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	depth := 0
	end := -1
	inString := false
	for i := start; i < len(response) && end == -1; i++ {
		switch c := response[i]; {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("no matching closing bracket found")
	}

	if err := json.Unmarshal([]byte(response[start:end]), &configs); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
	}
	return configs, nil
}
