package generic

import (
	"net/url"

	"menuscout/internal/extractor"
)

// Site reads any menu page using the default selectors. It is not registered;
// callers fall back to it when no registered site matches a URL.
type Site struct {
	menuURL string
}

func NewSite(menuURL string) *Site {
	return &Site{menuURL: menuURL}
}

func (s *Site) Name() string { return "generic" }

func (s *Site) MenuURL() string { return s.menuURL }

func (s *Site) Selectors() extractor.Selectors { return extractor.DefaultSelectors() }

// Matches accepts any absolute http(s) URL.
func (s *Site) Matches(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
