package extractor

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"menuscout/internal/menu"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// maxHeadingNameLength bounds category names taken from page headings.
const maxHeadingNameLength = 50

// Strategy is one way of locating item elements. Strategies are tried in
// order until one yields at least one named item.
type Strategy struct {
	Name     string
	Selector string
	// Union queries each comma separated selector on its own and joins the
	// matches in selector order. Otherwise the group is matched in document order.
	Union bool
}

// Result is the outcome of one extraction pass.
type Result struct {
	Snapshot menu.Snapshot
	Strategy string // strategy that produced the items, "" when none did
	Dropped  int    // item elements discarded for lack of a name
	Failures []string
}

// Extractor builds menu snapshots from a rendered menu page.
type Extractor struct {
	sel        Selectors
	strategies []Strategy
	now        func() time.Time
}

// NewExtractor creates an Extractor for the given selectors with the default
// strategy list: the primary item group, then the alternate card group.
func NewExtractor(sel Selectors) *Extractor {
	return &Extractor{
		sel: sel,
		strategies: []Strategy{
			{Name: "primary", Selector: sel.MenuItem, Union: true},
			{Name: "alternate", Selector: sel.AltMenuCard},
		},
		now: time.Now,
	}
}

// WithStrategies replaces the item strategy list.
func (e *Extractor) WithStrategies(strategies ...Strategy) *Extractor {
	e.strategies = strategies
	return e
}

// WithClock sets the clock used to stamp snapshots.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Strategies returns the configured item strategies.
func (e *Extractor) Strategies() []Strategy {
	return e.strategies
}

// ExtractHTML parses raw HTML and extracts a snapshot from it.
func (e *Extractor) ExtractHTML(rawHTML, sourceURL string) menu.Snapshot {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		log.WithError(err).WithField("source", sourceURL).Error("failed to parse page HTML")
		return menu.NewSnapshot(sourceURL, e.now())
	}
	return e.Extract(doc, sourceURL)
}

// Extract never fails: a failing pass is logged and leaves its part of the
// snapshot empty.
func (e *Extractor) Extract(doc *goquery.Document, sourceURL string) menu.Snapshot {
	return e.Run(doc, sourceURL).Snapshot
}

// Run performs a full extraction and reports how it went.
func (e *Extractor) Run(doc *goquery.Document, sourceURL string) Result {
	res := Result{Snapshot: menu.NewSnapshot(sourceURL, e.now())}
	logger := log.WithField("source", sourceURL)

	if doc == nil {
		res.Failures = append(res.Failures, "document: nil")
		logger.Error("no document to extract from")
		return res
	}
	origin := originOf(sourceURL)

	if err := guard(func() {
		res.Snapshot.Categories = e.parseCategories(doc)
	}); err != nil {
		res.Snapshot.Categories = []menu.Category{}
		res.Failures = append(res.Failures, "categories: "+err.Error())
		logger.WithError(err).Error("category extraction failed")
	}
	logger.WithField("count", len(res.Snapshot.Categories)).Debug("found categories")

	if err := guard(func() {
		for _, st := range e.strategies {
			items, dropped := e.parseItems(doc, st, origin)
			res.Dropped = dropped
			logger.WithFields(log.Fields{"strategy": st.Name, "count": len(items)}).Debug("item strategy finished")
			if len(items) > 0 {
				res.Snapshot.Items = items
				res.Strategy = st.Name
				return
			}
		}
	}); err != nil {
		res.Snapshot.Items = []menu.MenuItem{}
		res.Strategy = ""
		res.Failures = append(res.Failures, "items: "+err.Error())
		logger.WithError(err).Error("item extraction failed")
	}

	if len(res.Snapshot.Categories) > 0 && len(res.Snapshot.Items) > 0 {
		if err := guard(func() {
			e.assignCategories(doc, &res.Snapshot)
		}); err != nil {
			res.Failures = append(res.Failures, "assign: "+err.Error())
			logger.WithError(err).Error("category assignment failed")
		}
	}

	logger.WithFields(log.Fields{
		"categories": len(res.Snapshot.Categories),
		"items":      len(res.Snapshot.Items),
		"strategy":   res.Strategy,
		"dropped":    res.Dropped,
	}).Info("menu extracted")

	return res
}

// parseCategories reads the category navigation, falling back to section
// headings when the navigation yields nothing.
func (e *Extractor) parseCategories(doc *goquery.Document) []menu.Category {
	categories := []menu.Category{}

	for i, el := range findUnion(doc.Selection, e.sel.CategoryItem) {
		nameEl := first(el, e.sel.CategoryName)
		if nameEl == nil {
			nameEl = el
		}
		name := menu.CleanText(nameEl.Text())
		if name == "" {
			continue
		}
		categories = append(categories, newCategory(i, name))
	}
	if len(categories) > 0 {
		return categories
	}

	findAll(doc.Selection, e.sel.CategoryHeadings).Each(func(i int, el *goquery.Selection) {
		name := menu.CleanText(el.Text())
		if name != "" && utf8.RuneCountInString(name) < maxHeadingNameLength {
			categories = append(categories, newCategory(i, name))
		}
	})
	return categories
}

func newCategory(index int, name string) menu.Category {
	return menu.Category{
		ID:   fmt.Sprintf("cat-%d", index+1),
		Name: name,
		Slug: menu.Slugify(name),
	}
}

// parseItems applies one strategy and returns the named items plus the number
// of candidates dropped for lack of a name.
func (e *Extractor) parseItems(doc *goquery.Document, st Strategy, origin *url.URL) ([]menu.MenuItem, int) {
	var candidates []*goquery.Selection
	if st.Union {
		candidates = findUnion(doc.Selection, st.Selector)
	} else {
		findAll(doc.Selection, st.Selector).Each(func(_ int, el *goquery.Selection) {
			candidates = append(candidates, el)
		})
	}

	items := []menu.MenuItem{}
	dropped := 0
	for i, el := range candidates {
		item, ok := e.parseItem(el, i, origin)
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}
	return items, dropped
}

// parseItem reads a single item element. Elements without a name are rejected.
func (e *Extractor) parseItem(el *goquery.Selection, index int, origin *url.URL) (item menu.MenuItem, ok bool) {
	if err := guard(func() {
		nameEl := first(el, e.sel.ItemName, e.sel.ItemNameFallback)
		if nameEl == nil {
			return
		}
		name := menu.CleanText(nameEl.Text())
		if name == "" {
			return
		}

		item = menu.MenuItem{
			ID:   fmt.Sprintf("item-%d", index+1),
			Name: name,
		}
		if priceEl := first(el, e.sel.ItemPrice, e.sel.ItemPriceFallback); priceEl != nil {
			item.Price = menu.ParsePrice(priceEl.Text())
		}
		if descEl := first(el, e.sel.ItemDescription, e.sel.ItemDescriptionFallback); descEl != nil {
			item.Description = menu.StringPtr(menu.CleanText(descEl.Text()))
		}
		if imgEl := first(el, e.sel.ItemImage, e.sel.ItemImageFallback); imgEl != nil {
			item.Image = menu.StringPtr(resolveImage(imgEl, origin))
		}
		item.CategoryID = menu.StringPtr(dataCategory(el))
		ok = true
	}); err != nil {
		log.WithError(err).WithField("index", index).Warn("failed to parse item element")
		return menu.MenuItem{}, false
	}
	return item, ok
}

// assignCategories sets categoryId on items found inside a section whose
// heading names a known category. Matching is by exact cleaned name; the first
// item with that name wins and items already carrying a category are left alone.
func (e *Extractor) assignCategories(doc *goquery.Document, snap *menu.Snapshot) {
	itemGroup := joinGroups(e.sel.MenuItem, e.sel.AltMenuCard)

	findAll(doc.Selection, e.sel.Section).Each(func(_ int, section *goquery.Selection) {
		header := first(section, e.sel.SectionHeader)
		if header == nil {
			return
		}
		category, ok := snap.CategoryByName(menu.CleanText(header.Text()))
		if !ok {
			return
		}

		findAll(section, itemGroup).Each(func(_ int, itemEl *goquery.Selection) {
			nameEl := first(itemEl, e.sel.SectionItemName)
			if nameEl == nil || nameEl.Text() == "" {
				return
			}
			cleanName := menu.CleanText(nameEl.Text())
			for i := range snap.Items {
				if snap.Items[i].Name != cleanName {
					continue
				}
				if snap.Items[i].CategoryID == nil {
					id := category.ID
					snap.Items[i].CategoryID = &id
				}
				break
			}
		})
	})
}

func resolveImage(img *goquery.Selection, origin *url.URL) string {
	raw := ""
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			raw = v
			break
		}
	}
	if raw == "" || strings.HasPrefix(raw, "http") || origin == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return origin.ResolveReference(ref).String()
}

func dataCategory(el *goquery.Selection) string {
	if v := el.AttrOr("data-category", ""); v != "" {
		return v
	}
	return el.Closest("[data-category]").AttrOr("data-category", "")
}

func originOf(sourceURL string) *url.URL {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
}

// compile returns nil for selectors the CSS engine cannot parse; such
// selectors simply match nothing.
func compile(selector string) cascadia.Selector {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		log.WithError(err).WithField("selector", selector).Debug("skipping invalid selector")
		return nil
	}
	return m
}

// findAll matches a selector group below root in document order.
func findAll(root *goquery.Selection, group string) *goquery.Selection {
	m := compile(group)
	if m == nil {
		return root.FindNodes()
	}
	return root.FindMatcher(m)
}

// findUnion matches each selector of a comma separated group on its own and
// joins the results in selector order without duplicates.
func findUnion(root *goquery.Selection, group string) []*goquery.Selection {
	seen := make(map[*html.Node]bool)
	var out []*goquery.Selection
	for _, part := range splitGroup(group) {
		m := compile(part)
		if m == nil {
			continue
		}
		root.FindMatcher(m).Each(func(_ int, el *goquery.Selection) {
			n := el.Get(0)
			if seen[n] {
				return
			}
			seen[n] = true
			out = append(out, el)
		})
	}
	return out
}

// first returns the first descendant of el matching the first group that
// matches anything, or nil.
func first(el *goquery.Selection, groups ...string) *goquery.Selection {
	for _, group := range groups {
		if found := findAll(el, group).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}

func splitGroup(group string) []string {
	var parts []string
	for _, p := range strings.Split(group, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func joinGroups(groups ...string) string {
	var parts []string
	for _, g := range groups {
		if g = strings.TrimSpace(g); g != "" {
			parts = append(parts, g)
		}
	}
	return strings.Join(parts, ", ")
}

func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	fn()
	return nil
}
