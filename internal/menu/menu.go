package menu

import "time"

// Category is one menu section as shown in the site navigation.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// MenuItem is a single dish. Optional fields are nil when the page did not provide them.
type MenuItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       *int    `json:"price"`
	Image       *string `json:"image"`
	CategoryID  *string `json:"categoryId"`
}

// Snapshot is one complete capture of the menu page.
type Snapshot struct {
	Categories []Category `json:"categories"`
	Items      []MenuItem `json:"items"`
	CapturedAt time.Time  `json:"capturedAt"`
	SourceURL  string     `json:"sourceUrl"`
}

// NewSnapshot returns an empty snapshot with non-nil slices so it always
// serializes as lists.
func NewSnapshot(sourceURL string, capturedAt time.Time) Snapshot {
	return Snapshot{
		Categories: []Category{},
		Items:      []MenuItem{},
		CapturedAt: capturedAt,
		SourceURL:  sourceURL,
	}
}

// CategoryByID looks up a category of the snapshot.
func (s Snapshot) CategoryByID(id string) (Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryByName returns the first category whose name equals name exactly.
func (s Snapshot) CategoryByName(name string) (Category, bool) {
	for _, c := range s.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// OrphanItems returns items whose categoryId does not reference a category
// of the same snapshot. They are tolerated, this is only for reporting.
func (s Snapshot) OrphanItems() []MenuItem {
	var orphans []MenuItem
	for _, item := range s.Items {
		if item.CategoryID == nil {
			continue
		}
		if _, ok := s.CategoryByID(*item.CategoryID); !ok {
			orphans = append(orphans, item)
		}
	}
	return orphans
}

// CountByCategory counts items per category id. Items without a category are
// counted under the empty key.
func (s Snapshot) CountByCategory() map[string]int {
	counts := make(map[string]int, len(s.Categories))
	for _, item := range s.Items {
		key := ""
		if item.CategoryID != nil {
			key = *item.CategoryID
		}
		counts[key]++
	}
	return counts
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
