package scraper

import (
	"context"
	"errors"
	"time"

	"menuscout/internal/extractor"
	"menuscout/internal/menu"
)

// ErrUnknownSite is returned when no registered site matches a name or URL.
var ErrUnknownSite = errors.New("unknown site")

// Site describes a restaurant menu page menuscout knows how to read.
type Site interface {
	Name() string
	MenuURL() string
	Selectors() extractor.Selectors
	Matches(rawURL string) bool
}

// Scraper turns a menu page into a snapshot.
type Scraper interface {
	Scrape(ctx context.Context, target string, opts Options) (menu.Snapshot, error)
}

// Content is anything that can be rendered in the supported output formats.
type Content interface {
	ToHTML() (string, error)
	ToText() (string, error)
	ToMarkdown() (string, error)
	ToJSON() ([]byte, error)
	ToCSV() (string, error)
}

type Options struct {
	WaitFor    string // load/element/time
	WaitTarget string
	Timeout    time.Duration
	Static     bool // load without a browser
	ShowUI     bool
	ProxyURL   string // --proxy flag or MENUSCOUT_PROXY env var
	UserAgent  string
}
