package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"menuscout/internal/cache"
	"menuscout/internal/config"
	"menuscout/internal/logging"
	"menuscout/internal/scraper"
	generic "menuscout/internal/sites/generic"
	_ "menuscout/internal/sites/rostics"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configFile string
	logLevel   string
	logFormat  string
	dbPath     string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "menuscout",
		Short:   "Capture restaurant menus from their web pages and browse them offline",
		Version: version,
		Long: `menuscout opens a restaurant menu page in a headless browser, extracts the
categories, dishes, prices and images it shows, and keeps the latest snapshot
in a local cache. The cached menu can be searched from the command line or
served to a browser extension over a small HTTP API.`,
		Example: `  # Capture the rostics.ru menu
  menuscout scrape

  # Keep the page open and re-capture as more dishes load
  menuscout watch --autoscroll

  # Search the cached menu
  menuscout show -q бургер
  menuscout show --category напитки -f markdown -o drinks.md

  # Serve the cached menu to the extension and keep it fresh
  menuscout serve --watch-url https://rostics.ru/menu`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: menuscout.yaml in ., ./config or ~/.config/menuscout)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Cache directory (overrides cache.path)")

	rootCmd.AddCommand(
		newScrapeCmd(),
		newWatchCmd(),
		newShowCmd(),
		newCategoriesCmd(),
		newClearCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// app holds what every command needs: configuration and the opened cache.
type app struct {
	cfg   *config.Config
	store *cache.BadgerStore
	cache *cache.Cache
}

// openApp loads configuration, applies the persistent flags, sets up logging
// and opens the cache. Callers must Close the app.
func openApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if dbPath != "" {
		cfg.Cache.Path = dbPath
	}

	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}

	store, err := cache.OpenBadger(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:   cfg,
		store: store,
		cache: cache.New(store, cfg.Cache.TTL),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close cache: %v\n", err)
	}
}

// resolveSite picks the site by --site, then by URL. Unknown URLs are read
// with the default selectors; with neither a site nor a URL the rostics menu
// is used.
func resolveSite(name, target string) (scraper.Site, error) {
	if name == "" && target == "" {
		name = "rostics"
	}
	site, err := scraper.Resolve(name, target)
	if errors.Is(err, scraper.ErrUnknownSite) {
		if name == "" {
			return generic.NewSite(target), nil
		}
		return nil, fmt.Errorf("%w (known sites: %s)", err, strings.Join(scraper.Names(), ", "))
	}
	return site, err
}

// normalizeURL normalizes URL, adds https:// if no protocol prefix
func normalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "https://" + rawURL
	}
	return rawURL
}
