// Package config loads the mangaprogress configuration: a YAML file, then
// MANGAPROGRESS_* environment overrides. Flags are applied by the CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/v0xg/mangaprogress/internal/ai"
	"github.com/v0xg/mangaprogress/internal/browser"
	"github.com/v0xg/mangaprogress/internal/locator"
	"github.com/v0xg/mangaprogress/internal/position"
	"github.com/v0xg/mangaprogress/internal/progress"
	"github.com/v0xg/mangaprogress/internal/site"
)

// DefaultPath is read when no config file is named and it exists.
const DefaultPath = "mangaprogress.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MANGAPROGRESS"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Browser  Browser             `yaml:"browser"`
	UI       browser.UISelectors `yaml:"ui"`
	Store    Store               `yaml:"store"`
	Tracking Tracking            `yaml:"tracking"`
	Locator  Locator             `yaml:"locator"`
	Provider ai.ProviderConfig   `yaml:"provider"`
	Server   Server              `yaml:"server"`
	Sites    []site.Definition   `yaml:"sites"`
}

type Browser struct {
	Width     int           `yaml:"width"`
	Height    int           `yaml:"height"`
	Headless  bool          `yaml:"headless"`
	Profile   string        `yaml:"profile"`
	RemoteURL string        `yaml:"remoteURL"`
	Timeout   time.Duration `yaml:"timeout"`
	Stealth   bool          `yaml:"stealth"`
}

type Store struct {
	Path    string `yaml:"path"`
	Preview bool   `yaml:"preview"`
}

type Tracking struct {
	Completion float64                 `yaml:"completion"` // percent of total that counts as finished
	Interval   time.Duration           `yaml:"interval"`
	Identity   progress.IdentityPolicy `yaml:"identity"`
	Load       position.LoadPolicy     `yaml:"load"`
	Resume     bool                    `yaml:"resume"`
}

type Locator struct {
	LongScrollFactor float64 `yaml:"longScrollFactor"`
	MinHeight        float64 `yaml:"minHeight"`
	MinWidth         float64 `yaml:"minWidth"`
	Content          string  `yaml:"content"`
	Significance     string  `yaml:"significance"`
	MaxClimb         int     `yaml:"maxClimb"`
}

type Server struct {
	Listen string `yaml:"listen"`
}

// env holds the overrides; unset variables leave the file values alone.
type env struct {
	Store      string   `envconfig:"STORE"`
	Headless   *bool    `envconfig:"HEADLESS"`
	Profile    string   `envconfig:"PROFILE"`
	RemoteURL  string   `envconfig:"REMOTE_URL"`
	Completion *float64 `envconfig:"COMPLETION"`
	Provider   string   `envconfig:"PROVIDER"`
	Model      string   `envconfig:"MODEL"`
	Listen     string   `envconfig:"LISTEN"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Browser: Browser{
			Width:   1280,
			Height:  900,
			Timeout: 30 * time.Second,
			Stealth: true,
		},
		UI:    browser.DefaultUISelectors(),
		Store: Store{Path: defaultStorePath(), Preview: true},
		Tracking: Tracking{
			Completion: 90,
			Interval:   time.Second,
			Identity:   progress.IdentityOverwrite,
			Load:       position.DiscardCompleted,
			Resume:     true,
		},
		Locator: Locator{
			LongScrollFactor: 2,
			MinHeight:        100,
			MinWidth:         200,
			Content:          "image",
			Significance:     "ancestor-siblings",
			MaxClimb:         10,
		},
		Provider: ai.ProviderConfig{Name: "claude"},
		Server:   Server{Listen: "127.0.0.1:8765"},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mangaprogress.db"
	}
	return filepath.Join(home, ".mangaprogress", "positions.db")
}

func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}

// Load reads path over the defaults and applies environment overrides. An
// empty path reads DefaultPath if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	cfg.applyEnv(e)
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Browser.Profile = expandHome(cfg.Browser.Profile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(e env) {
	if e.Store != "" {
		c.Store.Path = e.Store
	}
	if e.Headless != nil {
		c.Browser.Headless = *e.Headless
	}
	if e.Profile != "" {
		c.Browser.Profile = e.Profile
	}
	if e.RemoteURL != "" {
		c.Browser.RemoteURL = e.RemoteURL
	}
	if e.Completion != nil {
		c.Tracking.Completion = *e.Completion
	}
	if e.Provider != "" {
		c.Provider.Name = e.Provider
	}
	if e.Model != "" {
		c.Provider.Model = e.Model
	}
	if e.Listen != "" {
		c.Server.Listen = e.Listen
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Tracking.Completion <= 0 || c.Tracking.Completion > 100 {
		return fmt.Errorf("%w: tracking.completion %v must be in (0, 100]", ErrInvalid, c.Tracking.Completion)
	}
	if c.Tracking.Interval <= 0 {
		return fmt.Errorf("%w: tracking.interval %v must be positive", ErrInvalid, c.Tracking.Interval)
	}
	if (c.Locator.Significance == "" || c.Locator.Significance == "ancestor-siblings") && c.Locator.MaxClimb <= 0 {
		return fmt.Errorf("%w: locator.maxClimb %d must be positive for ancestor-siblings", ErrInvalid, c.Locator.MaxClimb)
	}
	if _, err := progress.ParseIdentityPolicy(string(c.Tracking.Identity)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := position.ParseLoadPolicy(string(c.Tracking.Load)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := c.LocatorConfig(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("%w: store.path", ErrInvalid)
	}
	if _, err := site.NewRegistry(c.Sites); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// CompletionPercentage serves the tracker's settings.
func (c *Config) CompletionPercentage() float64 { return c.Tracking.Completion }

// IdentityPolicy returns the parsed identity policy.
func (c *Config) IdentityPolicy() progress.IdentityPolicy {
	p, _ := progress.ParseIdentityPolicy(string(c.Tracking.Identity))
	return p
}

// LoadPolicy returns the parsed load policy.
func (c *Config) LoadPolicy() position.LoadPolicy {
	p, _ := position.ParseLoadPolicy(string(c.Tracking.Load))
	return p
}

// LocatorConfig resolves the filter names.
func (c *Config) LocatorConfig() (locator.Config, error) {
	content, err := locator.ContentFilterByName(c.Locator.Content)
	if err != nil {
		return locator.Config{}, err
	}
	sig, err := locator.SignificanceFilterByName(c.Locator.Significance, c.Locator.MaxClimb)
	if err != nil {
		return locator.Config{}, err
	}
	return locator.Config{
		LongScrollFactor: c.Locator.LongScrollFactor,
		MinHeight:        c.Locator.MinHeight,
		MinWidth:         c.Locator.MinWidth,
		Content:          content,
		Significance:     sig,
	}, nil
}

// BrowserOptions maps the browser section onto browser.Options.
func (c *Config) BrowserOptions(logger *slog.Logger) browser.Options {
	return browser.Options{
		Width:      c.Browser.Width,
		Height:     c.Browser.Height,
		Headless:   c.Browser.Headless,
		ProfileDir: c.Browser.Profile,
		RemoteURL:  c.Browser.RemoteURL,
		Timeout:    c.Browser.Timeout,
		Stealth:    c.Browser.Stealth,
		Logger:     logger,
	}
}

// Registry compiles the site definitions.
func (c *Config) Registry() (*site.Registry, error) {
	return site.NewRegistry(c.Sites)
}
