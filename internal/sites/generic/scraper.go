package generic

import (
	"context"
	"fmt"

	"menuscout/internal/browser"
	"menuscout/internal/extractor"
	"menuscout/internal/fetcher"
	"menuscout/internal/menu"
	"menuscout/internal/scraper"

	log "github.com/sirupsen/logrus"
)

// MenuScraper loads a menu page, in a browser or as static HTML, and extracts
// a snapshot with the selectors of its site.
type MenuScraper struct {
	site scraper.Site
	cfg  browser.Config
}

// NewMenuScraper creates a scraper for site. cfg is the base browser
// configuration; Options can override the proxy, user agent and headless mode.
func NewMenuScraper(site scraper.Site, cfg browser.Config) *MenuScraper {
	return &MenuScraper{site: site, cfg: cfg}
}

// Name returns the name of the scraped site
func (s *MenuScraper) Name() string {
	return s.site.Name()
}

// Scrape loads target, or the site's menu URL when target is empty, and
// extracts it before the page is closed.
func (s *MenuScraper) Scrape(ctx context.Context, target string, opts scraper.Options) (menu.Snapshot, error) {
	if target == "" {
		target = s.site.MenuURL()
	}
	if target == "" {
		return menu.Snapshot{}, fmt.Errorf("no URL to scrape for site %s", s.site.Name())
	}

	ext := extractor.NewExtractor(s.site.Selectors())
	logger := log.WithFields(log.Fields{"site": s.site.Name(), "url": target})

	if opts.Static {
		res, err := fetcher.Static(ctx, target, opts.UserAgent, opts.Timeout)
		if err != nil {
			return menu.Snapshot{}, err
		}
		logger.WithField("load_time", res.LoadTime).Debug("loaded static page")
		return ext.Extract(res.Document, res.URL), nil
	}

	b, err := browser.New(s.BrowserConfig(opts))
	if err != nil {
		return menu.Snapshot{}, fmt.Errorf("failed to create browser: %w", err)
	}
	defer b.Close()

	result, err := fetcher.NewFetcher(b).Open(ctx, target, FetchOptions(opts))
	if err != nil {
		return menu.Snapshot{}, fmt.Errorf("failed to fetch: %w", err)
	}
	defer result.Page.Close()
	logger.WithFields(log.Fields{"title": result.Title, "load_time": result.LoadTime}).Debug("loaded page")

	doc, err := fetcher.Document(result.Page)
	if err != nil {
		return menu.Snapshot{}, err
	}
	return ext.Extract(doc, result.URL), nil
}

// BrowserConfig merges opts into the base browser configuration.
func (s *MenuScraper) BrowserConfig(opts scraper.Options) browser.Config {
	cfg := s.cfg
	if opts.ProxyURL != "" {
		cfg.ProxyURL = opts.ProxyURL
	}
	if opts.UserAgent != "" {
		cfg.UserAgent = opts.UserAgent
	}
	if opts.ShowUI {
		cfg.Headless = false
	}
	return cfg
}

// FetchOptions converts scraper options to page loading options.
func FetchOptions(opts scraper.Options) fetcher.Options {
	return fetcher.Options{
		WaitFor:    fetcher.WaitStrategy(opts.WaitFor),
		WaitTarget: opts.WaitTarget,
		Timeout:    opts.Timeout,
	}
}
