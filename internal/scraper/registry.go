package scraper

import (
	"fmt"
	"sort"
	"strings"
)

var registry = map[string]Site{}

func Register(s Site) {
	registry[strings.ToLower(s.Name())] = s
}

func Get(name string) (Site, bool) {
	s, ok := registry[strings.ToLower(name)]
	return s, ok
}

// ForURL returns the first registered site (by name) whose pages include rawURL.
func ForURL(rawURL string) (Site, error) {
	for _, name := range Names() {
		if s := registry[name]; s.Matches(rawURL) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrUnknownSite, rawURL)
}

// Resolve picks a site by explicit name, falling back to matching the URL.
func Resolve(name, rawURL string) (Site, error) {
	if name != "" {
		s, ok := Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSite, name)
		}
		return s, nil
	}
	return ForURL(rawURL)
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
