package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/v0xg/mangaprogress/internal/config"
)

var (
	configPath string
	width      int
	height     int
	profile    string
	headless   bool
	verbose    bool
	provider   string
	model      string
	doResume   bool
	listen     string
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "mangaprogress",
		Short: "Track and resume reading progress on long-scroll manga readers",
		Long: `mangaprogress opens a reader page in Chrome, follows how far you have read,
remembers the exact image under the middle of the screen and scrolls back
to it the next time you open the chapter.

Example:
  mangaprogress track "https://www.webtoons.com/en/.../viewer?title_no=95&episode_no=12"`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default: ./mangaprogress.yaml if present)")
	pf.IntVar(&width, "width", 1280, "Viewport width")
	pf.IntVar(&height, "height", 900, "Viewport height")
	pf.StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for logged-in sessions (close browser first)")
	pf.BoolVar(&headless, "headless", false, "Run Chrome without a window")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	trackCmd := &cobra.Command{
		Use:   "track <url>",
		Short: "Open a chapter, resume the saved spot and track progress until finished",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrack,
	}
	trackCmd.Flags().BoolVar(&doResume, "resume", true, "Scroll back to the saved position first")

	resumeCmd := &cobra.Command{
		Use:   "resume <url>",
		Short: "Open a chapter and scroll to the saved spot without tracking",
		Args:  cobra.ExactArgs(1),
		RunE:  runResume,
	}

	suggestCmd := &cobra.Command{
		Use:   "suggest <url>",
		Short: "Ask an AI provider for reader configs that fit a page",
		Args:  cobra.ExactArgs(1),
		RunE:  runSuggest,
	}
	suggestCmd.Flags().StringVar(&provider, "provider", "", "AI provider: claude, openai (default: from config or claude)")
	suggestCmd.Flags().StringVar(&model, "model", "", "Specific model override")

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "List saved positions",
		Args:  cobra.NoArgs,
		RunE:  runPositions,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve saved positions over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listen, "listen", "", "Listen address (default: from config)")

	rootCmd.AddCommand(trackCmd, resumeCmd, suggestCmd, positionsCmd, serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads the config and lays explicitly set flags over it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("width") {
		cfg.Browser.Width = width
	}
	if flags.Changed("height") {
		cfg.Browser.Height = height
	}
	if flags.Changed("profile") {
		cfg.Browser.Profile = profile
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if flags.Changed("resume") {
		cfg.Tracking.Resume = doResume
	}
	if flags.Changed("provider") {
		cfg.Provider.Name = provider
	}
	if flags.Changed("model") {
		cfg.Provider.Model = model
	}
	if flags.Changed("listen") {
		cfg.Server.Listen = listen
	}
	return cfg, nil
}
