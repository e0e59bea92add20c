package rostics

import (
	"net/url"
	"strings"

	"menuscout/internal/extractor"
	"menuscout/internal/scraper"
)

const menuURL = "https://rostics.ru/menu"

func init() {
	scraper.Register(&Site{})
}

// Site is the rostics.ru menu.
type Site struct{}

func (s *Site) Name() string { return "rostics" }

func (s *Site) MenuURL() string { return menuURL }

// Selectors returns the rostics.ru page conventions. The default selector set
// was written against this site.
func (s *Site) Selectors() extractor.Selectors { return extractor.DefaultSelectors() }

// Matches accepts pages on rostics.ru and its subdomains.
func (s *Site) Matches(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "rostics.ru" || strings.HasSuffix(host, ".rostics.ru")
}
