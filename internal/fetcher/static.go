package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	log "github.com/sirupsen/logrus"
)

// StaticResult is a page fetched without running its scripts.
type StaticResult struct {
	Document *goquery.Document
	URL      string
	LoadTime time.Duration
}

// Static fetches url over plain HTTP. It only sees server rendered markup,
// which is enough for cached copies of the menu page and for pages that do
// not build the menu client side.
func Static(ctx context.Context, url, userAgent string, timeout time.Duration) (*StaticResult, error) {
	startTime := time.Now()

	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
	)
	if userAgent != "" {
		c.UserAgent = userAgent
	}
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}

	var (
		body     []byte
		finalURL = url
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL.String()
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	log.WithField("url", url).Debug("fetching static page")
	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()
	if fetchErr != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, fetchErr)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	return &StaticResult{
		Document: doc,
		URL:      finalURL,
		LoadTime: time.Since(startTime),
	}, nil
}
