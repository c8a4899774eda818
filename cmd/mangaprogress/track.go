package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0xg/mangaprogress/internal/position"
	"github.com/v0xg/mangaprogress/internal/preview"
	"github.com/v0xg/mangaprogress/internal/progress"
	"github.com/v0xg/mangaprogress/internal/resume"
)

const finalSaveTimeout = 10 * time.Second

func runTrack(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cfg, log, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	ui := s.browser.UI(cfg.UI)
	if err := ui.Inject(ctx); err != nil {
		log.Warn("track: inject progress bar", "error", err)
	}

	key, err := s.key(ctx)
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	log.Debug("track: identity", "key", key.String(), "complete", key.Complete())

	// Read the saved spot before the first tick can overwrite it.
	var saved *position.Saved
	if cfg.Tracking.Resume && key.Complete() {
		saved = loadSaved(ctx, s, key)
	}

	tracker := s.newTracker(key, progress.Options{
		UI:    ui,
		Saver: s.bookmarks,
		OnFinish: func(r progress.Result) {
			fmt.Printf("✓ Chapter finished (%v / %v)\n", r.Current, r.Total)
		},
	})

	fmt.Print("→ Reading progress... ")
	ok, err := tracker.Start(ctx)
	if err != nil {
		fmt.Println("failed")
		if errors.Is(err, progress.ErrNotFound) {
			return fmt.Errorf("no reader config matched this page; try `mangaprogress suggest %s`", args[0])
		}
		return err
	}
	if !ok {
		fmt.Println("stopped")
		return nil
	}
	if r := tracker.Progress(); r != nil {
		fmt.Printf("%v / %v\n", r.Current, r.Total)
	}

	if !key.Complete() {
		refreshIdentity(ctx, s, tracker)
	}
	if saved != nil {
		resumeTo(ctx, s, *saved, tracker)
	}

	waitForTracker(ctx, tracker, cfg.Tracking.Interval)
	tracker.Stop()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
	defer cancel()
	finalSave(saveCtx, s, tracker)
	return nil
}

// refreshIdentity retries the identity once the reader has rendered.
func refreshIdentity(ctx context.Context, s *session, tracker *progress.Tracker) {
	k, err := s.key(ctx)
	if err != nil {
		s.log.Warn("track: identity", "error", err)
		return
	}
	if k.Identifier != "" {
		tracker.SetIdentifier(k.Identifier)
	}
	if k.Chapter != 0 {
		tracker.SetChapter(k.Chapter)
	}
	if !tracker.Key().Complete() {
		fmt.Println("! Could not identify the chapter; positions will not be saved")
	}
}

func loadSaved(ctx context.Context, s *session, key progress.Key) *position.Saved {
	saved, err := s.bookmarks.Load(ctx, key, s.browser)
	if err != nil {
		s.log.Warn("resume: load", "key", key.String(), "error", err)
		return nil
	}
	if saved == nil {
		s.log.Debug("resume: nothing saved", "key", key.String())
	}
	return saved
}

func resumeTo(ctx context.Context, s *session, saved position.Saved, tracker *progress.Tracker) {
	fmt.Printf("→ Resuming at %v / %v... ", saved.Current, saved.Total)
	engine := resume.New(s.browser, resume.Options{
		Locator: s.bookmarks.Locator(),
		Logger:  s.log,
	})
	out, err := engine.Resume(ctx, saved, tracker)
	if err != nil {
		fmt.Println("failed")
		s.log.Warn("resume: failed", "error", err)
		return
	}
	fmt.Printf("%s (%s, %d steps)\n", out.Status, out.Policy, out.Steps)
}

// waitForTracker blocks until the tracker stops polling or ctx ends.
func waitForTracker(ctx context.Context, tracker *progress.Tracker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case <-ticker.C:
			switch tracker.State() {
			case progress.StateStopped:
				return
			case progress.StateFailed:
				fmt.Println("! Lost track of the reader progress")
				return
			}
		}
	}
}

func finalSave(ctx context.Context, s *session, tracker *progress.Tracker) {
	key := tracker.Key()
	if err := tracker.SaveNow(ctx); err != nil {
		s.log.Warn("track: final save", "key", key.String(), "error", err)
		return
	}
	if !key.Complete() {
		return
	}
	fmt.Printf("✓ Saved %s\n", key.String())

	if !s.cfg.Store.Preview {
		return
	}
	shot, err := s.browser.Screenshot(ctx)
	if err != nil {
		s.log.Warn("track: screenshot", "error", err)
		return
	}
	img, err := preview.Render(shot, preview.Options{})
	if err != nil {
		s.log.Warn("track: render preview", "error", err)
		return
	}
	if err := s.bookmarks.SavePreview(ctx, key, img); err != nil {
		s.log.Warn("track: save preview", "error", err)
	}
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cfg, log, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	key, err := s.key(ctx)
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	if !key.Complete() {
		return fmt.Errorf("could not identify the chapter (%s)", key.String())
	}

	saved := loadSaved(ctx, s, key)
	if saved == nil {
		fmt.Println("Nothing to resume")
		return nil
	}

	// Index resume reads live progress, so a tracker runs without saving.
	tracker := s.newTracker(key, progress.Options{})
	if _, err := tracker.Start(ctx); err != nil {
		log.Warn("resume: progress unavailable", "error", err)
	}
	defer tracker.Stop()

	resumeTo(ctx, s, *saved, tracker)
	return nil
}
