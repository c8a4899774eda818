package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/v0xg/mangaprogress/internal/ai"
	"github.com/v0xg/mangaprogress/internal/browser"
	"github.com/v0xg/mangaprogress/internal/progress"
)

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	url := args[0]

	p, err := ai.NewProvider(cfg.Provider)
	if err != nil {
		return fmt.Errorf("AI provider init failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "→ Opening %s... ", url)
	b, err := browser.Open(ctx, url, cfg.BrowserOptions(log))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed")
		return fmt.Errorf("browser: %w", err)
	}
	defer b.Close()

	doc, err := b.Snapshot(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed")
		return fmt.Errorf("snapshot failed: %w", err)
	}
	pm := ai.Survey(url, doc)
	fmt.Fprintf(os.Stderr, "done (%d image groups, %d counters)\n", len(pm.ImageGroups), len(pm.Counters))

	fmt.Fprintf(os.Stderr, "→ Asking %s for readers... ", cfg.Provider.Name)
	configs, err := p.SuggestReaders(ctx, pm)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed")
		return fmt.Errorf("suggestion failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "done (%d suggestions)\n", len(configs))

	working, rejected := ai.Validate(doc, configs)
	for _, r := range rejected {
		log.Debug("suggest: rejected", "name", r.Name)
	}
	if len(working) == 0 {
		return fmt.Errorf("none of the %d suggested readers produced progress on this page", len(configs))
	}

	readers := make([]progress.Config, 0, len(working))
	for _, w := range working {
		fmt.Fprintf(os.Stderr, "  ✓ %s: %v / %v\n", w.Config.Name, w.Result.Current, w.Result.Total)
		readers = append(readers, w.Config)
	}

	out, err := yaml.Marshal(map[string][]progress.Config{"readers": readers})
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
