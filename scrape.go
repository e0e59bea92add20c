package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"menuscout/internal/browser"
	"menuscout/internal/config"
	"menuscout/internal/menu"
	"menuscout/internal/scraper"
	generic "menuscout/internal/sites/generic"
	"menuscout/internal/watcher"

	"github.com/spf13/cobra"
)

// loadFlags are the page loading flags shared by scrape, watch and serve.
type loadFlags struct {
	site       string
	waitFor    string
	waitTarget string
	timeout    time.Duration
	showUI     bool
	proxyURL   string
	userAgent  string
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.site, "site", "", "Site to read (default: matched from the URL, rostics when no URL is given)")
	cmd.Flags().StringVarP(&f.waitFor, "wait-for", "w", "load", "Wait strategy (load, element, time)")
	cmd.Flags().StringVarP(&f.waitTarget, "wait-target", "T", "", "Wait target (selector for 'element' strategy, milliseconds for 'time' strategy)")
	cmd.Flags().DurationVarP(&f.timeout, "timeout", "t", 0, "Page load timeout (default: browser.timeout)")
	cmd.Flags().BoolVar(&f.showUI, "showui", false, "Show browser UI (disable headless mode)")
	cmd.Flags().StringVarP(&f.proxyURL, "proxy", "p", "", "Proxy URL (e.g. http://127.0.0.1:7890), defaults to MENUSCOUT_PROXY env var")
	cmd.Flags().StringVar(&f.userAgent, "user-agent", "", "Browser user agent")
}

func (f *loadFlags) validate() error {
	validStrategies := map[string]bool{
		"load":    true,
		"element": true,
		"time":    true,
	}
	if !validStrategies[f.waitFor] {
		return fmt.Errorf("invalid wait strategy: %s", f.waitFor)
	}
	if f.waitFor == "element" && f.waitTarget == "" {
		return fmt.Errorf("--wait-target is required when using 'element' wait strategy")
	}
	if f.waitFor == "time" && f.waitTarget == "" {
		return fmt.Errorf("--wait-target is required when using 'time' wait strategy")
	}
	return nil
}

// options merges the flags with the browser section of the config.
func (f *loadFlags) options(cfg *config.Config) scraper.Options {
	opts := scraper.Options{
		WaitFor:    f.waitFor,
		WaitTarget: f.waitTarget,
		Timeout:    f.timeout,
		ShowUI:     f.showUI || !cfg.Browser.Headless,
		ProxyURL:   f.proxyURL,
		UserAgent:  f.userAgent,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = cfg.Browser.Timeout
	}
	if opts.ProxyURL == "" {
		opts.ProxyURL = cfg.Browser.Proxy
	}
	if opts.UserAgent == "" {
		opts.UserAgent = cfg.Browser.UserAgent
	}
	return opts
}

func newScrapeCmd() *cobra.Command {
	var (
		flags  loadFlags
		static bool
	)

	cmd := &cobra.Command{
		Use:   "scrape [URL]",
		Short: "Capture a menu page once and save it to the cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var target string
			if len(args) > 0 {
				target = normalizeURL(args[0])
			}
			site, err := resolveSite(flags.site, target)
			if err != nil {
				return err
			}

			opts := flags.options(a.cfg)
			opts.Static = static
			ms := generic.NewMenuScraper(site, browser.Config{Headless: true})

			w := watcher.New(a.cfg.WatcherConfig(), func(ctx context.Context) (menu.Snapshot, error) {
				return scrapeWithProxyRetry(ctx, ms, target, opts)
			}, a.cache, watcher.WithURL(displayURL(target, site)))

			rec, err := w.Run(cmd.Context())
			if errors.Is(err, watcher.ErrNoItems) {
				return fmt.Errorf("no menu items found on %s, nothing was saved", displayURL(target, site))
			}
			if err != nil {
				return err
			}

			fmt.Printf("Saved %d items in %d categories from %s\n", len(rec.Items), len(rec.Categories), rec.SourceURL)
			if orphans := rec.OrphanItems(); len(orphans) > 0 {
				fmt.Fprintf(os.Stderr, "Warning: %d items reference unknown categories\n", len(orphans))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&static, "static", false, "Fetch server rendered HTML without a browser")
	return cmd
}

// scrapeWithProxyRetry tries without a proxy first and retries through it
// when one is configured.
func scrapeWithProxyRetry(ctx context.Context, s scraper.Scraper, target string, opts scraper.Options) (menu.Snapshot, error) {
	proxyURL := opts.ProxyURL
	opts.ProxyURL = ""

	snap, err := s.Scrape(ctx, target, opts)
	if err == nil || proxyURL == "" || opts.Static {
		if err != nil {
			return snap, fmt.Errorf("failed to fetch page: %w", err)
		}
		return snap, nil
	}

	fmt.Fprintf(os.Stderr, "Warning: First attempt failed: %v\n", err)
	fmt.Fprintf(os.Stderr, "Retrying with proxy: %s\n", proxyURL)
	opts.ProxyURL = proxyURL
	snap, err = s.Scrape(ctx, target, opts)
	if err != nil {
		return snap, fmt.Errorf("failed to fetch page (even with proxy): %w", err)
	}
	fmt.Fprintf(os.Stderr, "Fetched successfully (with proxy: %s)\n", proxyURL)
	return snap, nil
}

func displayURL(target string, site scraper.Site) string {
	if target != "" {
		return target
	}
	return site.MenuURL()
}
