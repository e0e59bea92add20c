package presenter

import (
	"strings"

	"menuscout/internal/menu"
)

// AllCategories selects every item regardless of category.
const AllCategories = "all"

// Session is the state of one menu view: the selected category and the
// search text.
type Session struct {
	Category string `json:"category" form:"category"`
	Query    string `json:"query" form:"q"`
}

func NewSession() Session {
	return Session{Category: AllCategories}
}

// Filter keeps the items matching both the category and the query, in
// extraction order. An empty or "all" category matches every item; the query
// is a case-insensitive substring of the name or the description.
func Filter(items []menu.MenuItem, category, query string) []menu.MenuItem {
	query = strings.ToLower(strings.TrimSpace(query))

	filtered := make([]menu.MenuItem, 0, len(items))
	for _, item := range items {
		if !matchesCategory(item, category) || !matchesQuery(item, query) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

func matchesCategory(item menu.MenuItem, category string) bool {
	if category == "" || category == AllCategories {
		return true
	}
	return item.CategoryID != nil && *item.CategoryID == category
}

func matchesQuery(item menu.MenuItem, query string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(item.Name), query) {
		return true
	}
	return item.Description != nil && strings.Contains(strings.ToLower(*item.Description), query)
}
