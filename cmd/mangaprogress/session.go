package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/v0xg/mangaprogress/internal/browser"
	"github.com/v0xg/mangaprogress/internal/config"
	"github.com/v0xg/mangaprogress/internal/locator"
	"github.com/v0xg/mangaprogress/internal/position"
	"github.com/v0xg/mangaprogress/internal/progress"
	"github.com/v0xg/mangaprogress/internal/site"
	"github.com/v0xg/mangaprogress/internal/store"
)

// session is one reader page open in Chrome plus the position store.
type session struct {
	cfg       *config.Config
	log       *slog.Logger
	browser   *browser.Browser
	store     store.Store
	bookmarks *position.Bookmarker
	adapter   site.Adapter
	url       *url.URL
}

func openStore(cfg *config.Config, log *slog.Logger) (store.Store, *position.Bookmarker, error) {
	st, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	lc, err := cfg.LocatorConfig()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	bm := position.NewBookmarker(st, position.Options{
		Locator:    locator.New(lc),
		LoadPolicy: cfg.LoadPolicy(),
		Logger:     log,
	})
	return st, bm, nil
}

func openSession(ctx context.Context, cfg *config.Config, log *slog.Logger, rawURL string) (*session, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	adapter, u, err := reg.Lookup(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w (known sites: %v)", err, reg.Names())
	}
	if !adapter.IsSyncPage(u) {
		return nil, fmt.Errorf("%s is not a reading page for site %s", rawURL, adapter.Name())
	}

	st, bm, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	fmt.Printf("→ Opening %s... ", rawURL)
	b, err := browser.Open(ctx, rawURL, cfg.BrowserOptions(log))
	if err != nil {
		fmt.Println("failed")
		st.Close()
		return nil, fmt.Errorf("browser: %w", err)
	}
	fmt.Println("done")

	return &session{
		cfg:       cfg,
		log:       log.With("site", adapter.Name()),
		browser:   b,
		store:     st,
		bookmarks: bm,
		adapter:   adapter,
		url:       u,
	}, nil
}

// key reads the page identity from the current snapshot.
func (s *session) key(ctx context.Context) (progress.Key, error) {
	doc, err := s.browser.Snapshot(ctx)
	if err != nil {
		return progress.Key{}, err
	}
	k, errs := site.Key(s.adapter, s.url, doc)
	for _, e := range errs {
		s.log.Warn("session: identity", "error", e)
	}
	return k, nil
}

func (s *session) newTracker(key progress.Key, opts progress.Options) *progress.Tracker {
	resolver := progress.NewResolver(s.adapter.Readers(), s.log)
	opts.Interval = s.cfg.Tracking.Interval
	opts.Settings = s.cfg
	opts.IdentityPolicy = s.cfg.IdentityPolicy()
	opts.Logger = s.log
	return progress.NewTracker(resolver, s.browser, key, opts)
}

func (s *session) Close() {
	s.browser.Close()
	if err := s.store.Close(); err != nil {
		s.log.Warn("session: close store", "error", err)
	}
}
