package generic

import (
	"context"
	"fmt"

	"menuscout/internal/browser"
	"menuscout/internal/extractor"
	"menuscout/internal/fetcher"
	"menuscout/internal/menu"
	"menuscout/internal/scraper"
	"menuscout/internal/watcher"

	"github.com/go-rod/rod"
	log "github.com/sirupsen/logrus"
)

// LivePage is a menu page kept open in a browser so it can be re-extracted
// as the user scrolls or the site loads more items.
type LivePage struct {
	browser  *browser.Browser
	page     *rod.Page
	ext      *extractor.Extractor
	itemLike string
	url      string
}

// Open loads target in a browser and keeps the tab open. The caller must
// Close the returned page.
func (s *MenuScraper) Open(ctx context.Context, target string, opts scraper.Options) (*LivePage, error) {
	if target == "" {
		target = s.site.MenuURL()
	}

	b, err := browser.New(s.BrowserConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	result, err := fetcher.NewFetcher(b).Open(ctx, target, FetchOptions(opts))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	log.WithFields(log.Fields{"url": result.URL, "title": result.Title, "proxy": b.ProxyURL()}).Info("menu page opened")

	sel := s.site.Selectors()
	return &LivePage{
		browser:  b,
		page:     result.Page,
		ext:      extractor.NewExtractor(sel),
		itemLike: sel.ItemLike,
		url:      result.URL,
	}, nil
}

// URL is the page URL after redirects.
func (p *LivePage) URL() string {
	return p.url
}

// Extract reads the current DOM of the page.
func (p *LivePage) Extract(ctx context.Context) (menu.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return menu.Snapshot{}, err
	}
	doc, err := fetcher.Document(p.page)
	if err != nil {
		return menu.Snapshot{}, err
	}
	if info, err := p.page.Info(); err == nil {
		p.url = info.URL
	}
	return p.ext.Extract(doc, p.url), nil
}

// Probe installs the mutation and scroll probe on the page.
func (p *LivePage) Probe(bottomOffset int) (*browser.Probe, error) {
	return browser.NewProbe(p.page, p.itemLike, bottomOffset)
}

// Notify shows the notice on the page and logs it.
func (p *LivePage) Notify(message string, level watcher.Level) {
	watcher.LogNotifier{}.Notify(message, level)
	if err := browser.Toast(p.page, message, string(level)); err != nil {
		log.WithError(err).Debug("failed to show notice on page")
	}
}

func (p *LivePage) Close() {
	if err := p.page.Close(); err != nil {
		log.WithError(err).Debug("failed to close page")
	}
	if err := p.browser.Close(); err != nil {
		log.WithError(err).Debug("failed to close browser")
	}
}
