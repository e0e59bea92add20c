package fetcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"menuscout/internal/browser"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	log "github.com/sirupsen/logrus"
)

// WaitStrategy wait strategy type
type WaitStrategy string

const (
	WaitStrategyLoad    WaitStrategy = "load"    // Wait for page to fully load, then for network idle
	WaitStrategyElement WaitStrategy = "element" // Wait for specific element to appear
	WaitStrategyTime    WaitStrategy = "time"    // Wait for fixed time (milliseconds)
)

// Options controls how a page is opened.
type Options struct {
	WaitFor    WaitStrategy
	WaitTarget string
	Timeout    time.Duration
}

// Result is an opened menu page.
type Result struct {
	Page     *rod.Page
	Title    string
	URL      string // final URL after redirects
	LoadTime time.Duration
}

// Fetcher opens pages in a browser.
type Fetcher struct {
	browser *browser.Browser
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(b *browser.Browser) *Fetcher {
	return &Fetcher{browser: b}
}

// Open navigates a new tab to url and applies the wait strategy. The caller
// owns the returned page and must close it.
func (f *Fetcher) Open(ctx context.Context, url string, opts Options) (*Result, error) {
	startTime := time.Now()
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	page, err := f.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page = page.Context(ctx)

	log.WithField("url", url).Debug("navigating")
	if err := page.Timeout(opts.Timeout).Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if err := applyWaitStrategy(page, opts); err != nil {
		page.Close()
		return nil, fmt.Errorf("wait strategy failed: %w", err)
	}

	title, err := page.Timeout(10 * time.Second).Eval(`() => document.title`)
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to get page title: %w", err)
	}

	finalURL := url
	if info, err := page.Info(); err == nil {
		finalURL = info.URL
	}

	return &Result{
		Page:     page,
		Title:    title.Value.String(),
		URL:      finalURL,
		LoadTime: time.Since(startTime),
	}, nil
}

// applyWaitStrategy applies wait strategy
func applyWaitStrategy(page *rod.Page, opts Options) error {
	switch opts.WaitFor {
	case WaitStrategyElement:
		if opts.WaitTarget == "" {
			return fmt.Errorf("wait target is required for element strategy")
		}
		if _, err := page.Timeout(opts.Timeout).Element(opts.WaitTarget); err != nil {
			return fmt.Errorf("failed to wait for element '%s': %w", opts.WaitTarget, err)
		}

	case WaitStrategyTime:
		duration, err := ParseWaitMillis(opts.WaitTarget)
		if err != nil {
			return err
		}
		time.Sleep(duration)

	default:
		if err := page.Timeout(opts.Timeout).WaitLoad(); err != nil {
			return fmt.Errorf("failed to wait for page load: %w", err)
		}
		// Menus are rendered by JS after load; wait for the API calls to settle.
		wait := page.Timeout(opts.Timeout).WaitRequestIdle(
			500*time.Millisecond, nil, nil,
			[]proto.NetworkResourceType{proto.NetworkResourceTypeImage, proto.NetworkResourceTypeMedia},
		)
		wait()
	}

	return nil
}

// ParseWaitMillis parses the --wait-target value of the time strategy.
func ParseWaitMillis(target string) (time.Duration, error) {
	if target == "" {
		return 0, fmt.Errorf("wait target is required for time strategy")
	}
	ms, err := strconv.Atoi(strings.TrimSpace(target))
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("invalid wait time '%s'", target)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Document snapshots the live DOM of page into a goquery document.
func Document(page *rod.Page) (*goquery.Document, error) {
	html, err := page.Timeout(10 * time.Second).HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to get page HTML: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	return doc, nil
}
