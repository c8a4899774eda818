package position

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/v0xg/mangaprogress/internal/dom"
	"github.com/v0xg/mangaprogress/internal/locator"
	"github.com/v0xg/mangaprogress/internal/progress"
	"github.com/v0xg/mangaprogress/internal/store"
)

// PreviewPrefix is prepended to a position key to store its preview image.
const PreviewPrefix = "preview/"

// Options configures a Bookmarker.
type Options struct {
	Locator    *locator.Locator // Default: locator.New(locator.Config{})
	LoadPolicy LoadPolicy       // Default: DiscardCompleted

	// ReadyAttempts snapshots, ReadyInterval apart, are taken before a load
	// gives up waiting for the page to become a long scroll.
	// Defaults: 10 and 500ms.
	ReadyAttempts int
	ReadyInterval time.Duration

	Logger *slog.Logger
}

// Bookmarker saves and loads positions. It implements progress.Saver.
type Bookmarker struct {
	store  store.Store
	opts   Options
	logger *slog.Logger
}

// Record is a stored position with its decoded key.
type Record struct {
	Key       progress.Key `json:"-"`
	StoreKey  string       `json:"key"`
	Saved     Saved        `json:"position"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// NewBookmarker creates a Bookmarker over st.
func NewBookmarker(st store.Store, opts Options) *Bookmarker {
	if opts.Locator == nil {
		opts.Locator = locator.New(locator.Config{})
	}
	if opts.LoadPolicy == "" {
		opts.LoadPolicy = DiscardCompleted
	}
	if opts.ReadyAttempts <= 0 {
		opts.ReadyAttempts = 10
	}
	if opts.ReadyInterval <= 0 {
		opts.ReadyInterval = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Bookmarker{store: st, opts: opts, logger: opts.Logger}
}

// Locator returns the locator used for saves.
func (b *Bookmarker) Locator() *locator.Locator { return b.opts.Locator }

// SavePosition writes the element under the viewport centre for key. Pages
// that are not a long scroll, or that show no qualifying element, are
// skipped without error.
func (b *Bookmarker) SavePosition(ctx context.Context, key progress.Key, doc *dom.Document, res progress.Result) error {
	m, ok := b.opts.Locator.Locate(doc)
	if !ok {
		b.logger.Debug("position: nothing to save", "key", key.String(), "longScroll", b.opts.Locator.IsLongScroll(doc))
		return nil
	}

	offset := m.RelativeOffset
	data, err := json.Marshal(Saved{
		Current:        res.Current,
		Total:          res.Total,
		StructuralPath: Encode(m.Root, m.Element),
		RelativeOffset: &offset,
	})
	if err != nil {
		return fmt.Errorf("position: encode: %w", err)
	}
	if err := b.store.Put(ctx, key.String(), data); err != nil {
		return err
	}
	b.logger.Debug("position: saved", "key", key.String(), "current", res.Current, "offset", offset)
	return nil
}

// Load waits for src to become a long scroll and returns the saved
// position for key. Missing, corrupt or policy-rejected entries, and pages
// that never become ready, all yield nil with a nil error.
func (b *Bookmarker) Load(ctx context.Context, key progress.Key, src progress.Source) (*Saved, error) {
	ready, err := b.waitReady(ctx, src)
	if err != nil {
		return nil, err
	}
	if !ready {
		b.logger.Info("position: page is not a long scroll, nothing to load", "key", key.String())
		return nil, nil
	}

	s, err := b.Read(ctx, key.String())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	case err != nil:
		b.logger.Warn("position: ignoring saved position", "key", key.String(), "error", err)
		return nil, nil
	}
	if !b.opts.LoadPolicy.Admits(s) {
		b.logger.Debug("position: saved position already complete", "key", key.String(), "policy", b.opts.LoadPolicy)
		return nil, nil
	}
	return &s, nil
}

func (b *Bookmarker) waitReady(ctx context.Context, src progress.Source) (bool, error) {
	timer := time.NewTimer(b.opts.ReadyInterval)
	defer timer.Stop()

	for i := 0; i < b.opts.ReadyAttempts; i++ {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
		doc, err := src.Snapshot(ctx)
		if err != nil {
			b.logger.Debug("position: readiness snapshot", "attempt", i+1, "error", err)
		} else if b.opts.Locator.IsLongScroll(doc) {
			return true, nil
		}
		timer.Reset(b.opts.ReadyInterval)
	}
	return false, nil
}

// Read decodes the stored entry for a raw store key, without any policy.
func (b *Bookmarker) Read(ctx context.Context, storeKey string) (Saved, error) {
	if !strings.HasPrefix(storeKey, progress.KeyPrefix) {
		return Saved{}, store.ErrNotFound
	}
	data, err := b.store.Get(ctx, storeKey)
	if err != nil {
		return Saved{}, err
	}
	return decodeSaved(data)
}

// List returns every decodable position. Corrupt entries are logged and
// skipped.
func (b *Bookmarker) List(ctx context.Context) ([]Record, error) {
	entries, err := b.store.List(ctx, progress.KeyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		k, err := progress.ParseKey(e.Key)
		if err != nil {
			b.logger.Warn("position: skipping key", "key", e.Key, "error", err)
			continue
		}
		s, err := decodeSaved(e.Value)
		if err != nil {
			b.logger.Warn("position: skipping entry", "key", e.Key, "error", err)
			continue
		}
		out = append(out, Record{Key: k, StoreKey: e.Key, Saved: s, UpdatedAt: e.UpdatedAt})
	}
	return out, nil
}

// SavePreview stores an encoded preview image next to key's position.
func (b *Bookmarker) SavePreview(ctx context.Context, key progress.Key, img []byte) error {
	return b.store.Put(ctx, PreviewPrefix+key.String(), img)
}

// Preview returns the preview image for a raw store key.
func (b *Bookmarker) Preview(ctx context.Context, storeKey string) ([]byte, error) {
	if !strings.HasPrefix(storeKey, progress.KeyPrefix) {
		return nil, store.ErrNotFound
	}
	return b.store.Get(ctx, PreviewPrefix+storeKey)
}
