package progress

import (
	"fmt"
	"log/slog"

	"github.com/v0xg/mangaprogress/internal/collector"
	"github.com/v0xg/mangaprogress/internal/dom"
)

// Result is the progress read from one snapshot.
type Result struct {
	Current float64 `json:"current"`
	Total   float64 `json:"total"`
}

// Resolver tries an ordered list of configs; the first one whose condition
// holds and whose collectors both succeed wins.
type Resolver struct {
	configs []Config
	logger  *slog.Logger
}

// NewResolver creates a Resolver. Ordering is the caller's responsibility.
func NewResolver(configs []Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{configs: configs, logger: logger}
}

// Configs returns the configured strategies in evaluation order.
func (r *Resolver) Configs() []Config { return r.configs }

// Resolve returns the first successful result, or nil when none applies.
func (r *Resolver) Resolve(doc *dom.Document) *Result {
	for i, cfg := range r.configs {
		if !cfg.Condition.Holds(doc) {
			continue
		}
		res, err := apply(doc, cfg)
		if err != nil {
			r.logger.Debug("resolver: skip config", "index", i, "name", cfg.Name, "error", err)
			continue
		}
		return res
	}
	return nil
}

func apply(doc *dom.Document, cfg Config) (*Result, error) {
	current, err := collector.Run(doc, cfg.Current)
	if err != nil {
		return nil, fmt.Errorf("current: %w", err)
	}
	total, err := collector.Run(doc, cfg.Total)
	if err != nil {
		return nil, fmt.Errorf("total: %w", err)
	}
	return &Result{Current: current, Total: total}, nil
}
