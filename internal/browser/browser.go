// Package browser drives a Chrome page through go-rod: it captures DOM
// snapshots, scrolls, paints the progress surface and takes screenshots.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Options configures the browser session.
type Options struct {
	Width    int
	Height   int
	Headless bool
	// ProfileDir is a Chrome user data directory, for logged-in sessions.
	ProfileDir string
	// RemoteURL connects to an already running Chrome instead of launching.
	RemoteURL string
	Timeout   time.Duration // navigation. Default: 30s
	Stealth   bool
	Logger    *slog.Logger
}

func (o *Options) defaults() {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 900
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Browser wraps the Rod browser and the one page being read.
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	logger  *slog.Logger
}

// Open launches (or connects to) Chrome and loads url.
func Open(ctx context.Context, url string, opts Options) (*Browser, error) {
	opts.defaults()
	log := opts.Logger

	b := &Browser{logger: log}

	wsURL := opts.RemoteURL
	if wsURL == "" {
		path, _ := launcher.LookPath()
		l := launcher.New().Bin(path).Headless(opts.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if opts.ProfileDir != "" {
			l = l.UserDataDir(opts.ProfileDir)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Debug("browser: launched local chrome", "url", wsURL, "headless", opts.Headless)
	} else {
		log.Debug("browser: connecting to remote", "url", wsURL)
	}

	rb := rod.New().ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		b.Close()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	b.browser = rb

	var err error
	if opts.Stealth {
		b.page, err = stealth.Page(b.browser)
	} else {
		b.page, err = b.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	err = b.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	if err := b.Navigate(ctx, url, opts.Timeout); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Navigate loads url and waits for the page to settle.
func (b *Browser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := b.page.Context(navCtx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		b.logger.Warn("browser: wait load", "url", url, "error", err)
	}

	// Readers keep connections open; don't wait on them forever.
	b.page.Context(ctx).Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()

	b.waitForImages(ctx, 5*time.Second)
	return nil
}

// waitForImages polls until the page shows at least one decoded image or
// the timeout passes.
func (b *Browser) waitForImages(ctx context.Context, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		res, err := b.page.Context(ctx).Eval(`() => Array.from(document.images).filter(i => i.complete && i.naturalHeight > 0).length`)
		if err == nil && res.Value.Int() > 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
	b.logger.Debug("browser: no images after load", "timeout", timeout)
}

// URL returns the current location.
func (b *Browser) URL(ctx context.Context) (string, error) {
	res, err := b.page.Context(ctx).Eval(`() => window.location.href`)
	if err != nil {
		return "", fmt.Errorf("browser: url: %w", err)
	}
	return res.Value.Str(), nil
}

// Screenshot captures the visible viewport as PNG.
func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := b.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return data, nil
}

// Page returns the underlying Rod page.
func (b *Browser) Page() *rod.Page {
	return b.page
}

// Close releases the page, the connection and any launched Chrome.
func (b *Browser) Close() {
	if b.page != nil {
		b.page.Close()
	}
	if b.browser != nil {
		b.browser.Close()
	}
	if b.lnch != nil {
		b.lnch.Kill()
	}
}
