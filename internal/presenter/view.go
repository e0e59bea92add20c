package presenter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"menuscout/internal/cache"
	"menuscout/internal/menu"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

const (
	noResults  = "No dishes found"
	emptyState = "No menu saved yet. Open the menu page with menuscout watch or run menuscout scrape."
)

// Freshness renders the age of a cached record.
type Freshness interface {
	Age(cachedAt time.Time) string
	IsFresh(cachedAt time.Time) bool
}

// View is the cached menu seen through a session. It renders the category
// bar and the filtered item grid in every output format.
type View struct {
	record  *cache.Record
	session Session
	items   []menu.MenuItem
	info    string
	age     string
	fresh   bool
}

// NewView filters record for session. record may be nil when nothing has been
// cached yet.
func NewView(record *cache.Record, session Session, freshness Freshness) *View {
	if session.Category == "" {
		session.Category = AllCategories
	}
	v := &View{record: record, session: session, items: []menu.MenuItem{}, age: cache.FormatAge(0, true)}
	if record == nil {
		return v
	}

	v.items = Filter(record.Items, session.Category, session.Query)
	if !record.CachedAt.IsZero() && freshness != nil {
		v.fresh = freshness.IsFresh(record.CachedAt)
		v.age = freshness.Age(record.CachedAt)
		v.info = "Updated " + v.age
		if !v.fresh {
			v.info += " (stale)"
		}
	}
	return v
}

// Empty reports whether there is no cached menu to show.
func (v *View) Empty() bool {
	return v.record == nil || len(v.record.Items) == 0
}

// Items returns the items that pass the session filter.
func (v *View) Items() []menu.MenuItem {
	return v.items
}

// CacheInfo is the "Updated <age>" line, "" when nothing is cached.
func (v *View) CacheInfo() string {
	return v.info
}

func (v *View) categories() []menu.Category {
	if v.record == nil {
		return nil
	}
	return v.record.Categories
}

func (v *View) categoryName(item menu.MenuItem) string {
	if v.record == nil || item.CategoryID == nil {
		return ""
	}
	if c, ok := v.record.CategoryByID(*item.CategoryID); ok {
		return c.Name
	}
	return ""
}

var viewTemplate = template.Must(template.New("menu").Funcs(template.FuncMap{
	"price": menu.FormatPrice,
	"deref": menu.Deref,
}).Parse(`<div class="menuscout">
{{- if .Empty}}
<p class="empty-state">{{.EmptyText}}</p>
{{- else}}
{{- if .Info}}
<p class="cache-info">{{.Info}}</p>
{{- end}}
<ul class="categories">
<li class="category-btn{{if eq .Active "all"}} active{{end}}" data-category="all">All</li>
{{- range .Categories}}
<li class="category-btn{{if eq $.Active .ID}} active{{end}}" data-category="{{.ID}}">{{.Name}}</li>
{{- end}}
</ul>
<div class="menu-grid">
{{- range .Items}}
<article class="menu-item" data-id="{{.ID}}">
{{- if .Image}}
<img class="menu-item-image" src="{{deref .Image}}" alt="{{.Name}}">
{{- end}}
<h3 class="menu-item-name">{{.Name}}</h3>
{{- if .Description}}
<p class="menu-item-description">{{deref .Description}}</p>
{{- end}}
{{- if .Price}}
<p class="menu-item-price">{{price .Price}}</p>
{{- end}}
</article>
{{- else}}
<div class="no-results">{{$.NoResults}}</div>
{{- end}}
</div>
{{- end}}
</div>
`))

// ToHTML returns the category bar and item grid as an HTML fragment.
func (v *View) ToHTML() (string, error) {
	data := struct {
		Empty      bool
		EmptyText  string
		NoResults  string
		Info       string
		Active     string
		Categories []menu.Category
		Items      []menu.MenuItem
	}{
		Empty:      v.Empty(),
		EmptyText:  emptyState,
		NoResults:  noResults,
		Info:       v.info,
		Active:     v.session.Category,
		Categories: v.categories(),
		Items:      v.items,
	}

	var buf bytes.Buffer
	if err := viewTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render menu: %w", err)
	}
	return buf.String(), nil
}

// ToMarkdown converts the HTML view to Markdown.
func (v *View) ToMarkdown() (string, error) {
	html, err := v.ToHTML()
	if err != nil {
		return "", err
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return markdown, nil
}

// ToText returns one line per item with its price, followed by an indented
// description.
func (v *View) ToText() (string, error) {
	if v.Empty() {
		return emptyState + "\n", nil
	}

	var sb strings.Builder
	if v.info != "" {
		sb.WriteString(v.info + "\n")
	}
	category := "All"
	if c, ok := v.record.CategoryByID(v.session.Category); ok {
		category = c.Name
	}
	sb.WriteString("Category: " + category)
	if q := strings.TrimSpace(v.session.Query); q != "" {
		sb.WriteString(fmt.Sprintf(" | Search: %q", q))
	}
	sb.WriteString("\n\n")

	if len(v.items) == 0 {
		sb.WriteString(noResults + "\n")
		return sb.String(), nil
	}
	for _, item := range v.items {
		sb.WriteString(item.Name)
		if p := menu.FormatPrice(item.Price); p != "" {
			sb.WriteString("  " + p)
		}
		sb.WriteString("\n")
		if item.Description != nil {
			sb.WriteString("    " + *item.Description + "\n")
		}
	}
	return sb.String(), nil
}

// ToJSON returns the filtered items together with the cache metadata.
func (v *View) ToJSON() ([]byte, error) {
	type jsonOutput struct {
		Category   string          `json:"category"`
		Query      string          `json:"query"`
		Count      int             `json:"count"`
		Categories []menu.Category `json:"categories"`
		Items      []menu.MenuItem `json:"items"`
		CachedAt   *time.Time      `json:"cachedAt"`
		Fresh      bool            `json:"fresh"`
		Age        string          `json:"age"`
		Updated    string          `json:"updated,omitempty"`
		SourceURL  string          `json:"sourceUrl,omitempty"`
	}

	output := jsonOutput{
		Category:   v.session.Category,
		Query:      v.session.Query,
		Count:      len(v.items),
		Categories: []menu.Category{},
		Items:      v.items,
		Fresh:      v.fresh,
		Age:        v.age,
		Updated:    v.info,
	}
	if v.record != nil {
		if v.record.Categories != nil {
			output.Categories = v.record.Categories
		}
		output.SourceURL = v.record.SourceURL
		if !v.record.CachedAt.IsZero() {
			cachedAt := v.record.CachedAt
			output.CachedAt = &cachedAt
		}
	}

	return json.MarshalIndent(output, "", "  ")
}

// ToCSV returns the filtered items, one row each, with a header row.
func (v *View) ToCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "name", "description", "price", "category", "image"})

	for _, item := range v.items {
		price := ""
		if item.Price != nil {
			price = strconv.Itoa(*item.Price)
		}
		_ = w.Write([]string{
			item.ID,
			item.Name,
			menu.Deref(item.Description),
			price,
			v.categoryName(item),
			menu.Deref(item.Image),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.String(), nil
}
