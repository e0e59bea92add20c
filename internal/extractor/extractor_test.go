package extractor

import (
	"strings"
	"testing"
	"time"

	"menuscout/internal/menu"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sourceURL = "https://rostics.ru/menu"

const menuPage = `<!DOCTYPE html>
<html><body>
<nav class="categories">
  <div class="category-item"><span class="category-name">Бургеры</span></div>
  <div class="category-item"><span class="category-name"> Напитки </span></div>
</nav>
<section>
  <h2>Бургеры</h2>
  <div class="menu-item">
    <h3>Шефбургер</h3>
    <p>Курица,
       соус</p>
    <span class="price">199 ₽</span>
    <img src="/img/chef.png">
  </div>
  <div class="menu-item">
    <h3>Биг Шеф</h3>
    <span class="price">299,50 ₽</span>
    <img data-src="img/big.png">
  </div>
  <div class="menu-item"><span class="price">99 ₽</span></div>
</section>
<section>
  <h2>Напитки</h2>
  <div class="menu-item"><h4>Пепси</h4><span class="price">119Р</span></div>
  <div class="menu-item" data-category="cat-1"><h4>Чай</h4></div>
</section>
</body></html>`

const alternatePage = `<html><body>
<div class="dish-card"><div class="dish-name">Твистер</div><div class="dish-cost">189 ₽</div></div>
<div class="dish-card"><div class="dish-title">Баскет</div></div>
<div class="dish-card"><h4>Наггетсы</h4><div class="dish-desc">9 шт</div></div>
</body></html>`

func newDoc(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
}

func TestExtract_CategoriesAndItems(t *testing.T) {
	e := NewExtractor(DefaultSelectors()).WithClock(fixedClock)

	res := e.Run(newDoc(t, menuPage), sourceURL)
	snap := res.Snapshot

	assert.Equal(t, "primary", res.Strategy)
	assert.Equal(t, 1, res.Dropped)
	assert.Empty(t, res.Failures)
	assert.Equal(t, sourceURL, snap.SourceURL)
	assert.Equal(t, fixedClock(), snap.CapturedAt)

	require.Len(t, snap.Categories, 2)
	assert.Equal(t, menu.Category{ID: "cat-1", Name: "Бургеры", Slug: "бургеры"}, snap.Categories[0])
	assert.Equal(t, menu.Category{ID: "cat-2", Name: "Напитки", Slug: "напитки"}, snap.Categories[1])

	require.Len(t, snap.Items, 4)

	chef := snap.Items[0]
	assert.Equal(t, "item-1", chef.ID)
	assert.Equal(t, "Шефбургер", chef.Name)
	assert.Equal(t, "Курица, соус", menu.Deref(chef.Description))
	require.NotNil(t, chef.Price)
	assert.Equal(t, 199, *chef.Price)
	assert.Equal(t, "https://rostics.ru/img/chef.png", menu.Deref(chef.Image))
	assert.Equal(t, "cat-1", menu.Deref(chef.CategoryID))

	big := snap.Items[1]
	assert.Equal(t, "item-2", big.ID)
	assert.Nil(t, big.Description)
	assert.Equal(t, 300, *big.Price)
	assert.Equal(t, "https://rostics.ru/img/big.png", menu.Deref(big.Image))

	pepsi := snap.Items[2]
	assert.Equal(t, "item-4", pepsi.ID)
	assert.Equal(t, 119, *pepsi.Price)
	assert.Nil(t, pepsi.Image)
	assert.Equal(t, "cat-2", menu.Deref(pepsi.CategoryID))

	tea := snap.Items[3]
	assert.Equal(t, "Чай", tea.Name)
	assert.Nil(t, tea.Price)
	assert.Equal(t, "cat-1", menu.Deref(tea.CategoryID), "data-category wins over section assignment")
}

func TestExtract_FallsBackToAlternateCards(t *testing.T) {
	e := NewExtractor(DefaultSelectors())

	res := e.Run(newDoc(t, alternatePage), sourceURL)

	assert.Equal(t, "alternate", res.Strategy)
	assert.Empty(t, res.Snapshot.Categories)
	require.Len(t, res.Snapshot.Items, 3)

	names := []string{}
	for _, item := range res.Snapshot.Items {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"Твистер", "Баскет", "Наггетсы"}, names)
	assert.Equal(t, 189, *res.Snapshot.Items[0].Price)
	assert.Equal(t, "9 шт", menu.Deref(res.Snapshot.Items[2].Description))
}

func TestExtract_Idempotent(t *testing.T) {
	e := NewExtractor(DefaultSelectors())
	doc := newDoc(t, menuPage)

	first := e.Extract(doc, sourceURL)
	second := e.Extract(doc, sourceURL)

	diff := cmp.Diff(first.Items, second.Items,
		cmpopts.IgnoreFields(menu.MenuItem{}, "ID"),
		cmpopts.SortSlices(func(a, b menu.MenuItem) bool { return a.Name < b.Name }),
	)
	assert.Empty(t, diff)
}

func TestExtract_HeadingFallbackForCategories(t *testing.T) {
	page := `<html><body>
<h2>Бургеры</h2>
<h2>` + strings.Repeat("очень длинный заголовок ", 4) + `</h2>
<h3 class="category-title">Десерты</h3>
<h3>Не категория</h3>
</body></html>`

	snap := NewExtractor(DefaultSelectors()).Extract(newDoc(t, page), sourceURL)

	require.Len(t, snap.Categories, 2)
	assert.Equal(t, "cat-1", snap.Categories[0].ID)
	assert.Equal(t, "Бургеры", snap.Categories[0].Name)
	assert.Equal(t, "cat-3", snap.Categories[1].ID)
	assert.Equal(t, "десерты", snap.Categories[1].Slug)
	assert.Empty(t, snap.Items)
}

func TestExtract_EmptyDocument(t *testing.T) {
	snap := NewExtractor(DefaultSelectors()).ExtractHTML("", sourceURL)

	assert.NotNil(t, snap.Categories)
	assert.NotNil(t, snap.Items)
	assert.Empty(t, snap.Items)
	assert.Equal(t, sourceURL, snap.SourceURL)

	res := NewExtractor(DefaultSelectors()).Run(nil, sourceURL)
	assert.NotEmpty(t, res.Failures)
	assert.Empty(t, res.Snapshot.Items)
}

func TestExtract_InvalidSelectorsAreSkipped(t *testing.T) {
	sel := DefaultSelectors()
	sel.MenuItem = `[[[broken, .menu-item`

	snap := NewExtractor(sel).Extract(newDoc(t, menuPage), sourceURL)

	assert.Len(t, snap.Items, 4)
}

func TestExtract_CustomStrategies(t *testing.T) {
	page := `<html><body>
<ul><li class="row"><b class="row-name">Картофель фри</b><i class="price">89 ₽</i></li></ul>
</body></html>`

	e := NewExtractor(DefaultSelectors()).WithStrategies(
		Strategy{Name: "cards", Selector: ".card"},
		Strategy{Name: "rows", Selector: "li.row"},
	)
	res := e.Run(newDoc(t, page), sourceURL)

	assert.Equal(t, "rows", res.Strategy)
	require.Len(t, res.Snapshot.Items, 1)
	assert.Equal(t, "Картофель фри", res.Snapshot.Items[0].Name)
	assert.Equal(t, 89, *res.Snapshot.Items[0].Price)
	assert.Len(t, e.Strategies(), 2)
}

func TestExtract_DuplicateNamesAssignFirstOnly(t *testing.T) {
	page := `<html><body>
<div class="category-item">Комбо</div>
<div class="menu-item"><h3>Твистер</h3></div>
<div class="menu-item"><h3>Твистер</h3></div>
<section><h2>Комбо</h2><div class="menu-item"><h3>Твистер</h3></div></section>
</body></html>`

	snap := NewExtractor(DefaultSelectors()).Extract(newDoc(t, page), sourceURL)

	require.Len(t, snap.Items, 3)
	assert.Equal(t, "cat-1", menu.Deref(snap.Items[0].CategoryID))
	assert.Nil(t, snap.Items[1].CategoryID)
	assert.Nil(t, snap.Items[2].CategoryID)
}

func TestResolveImage(t *testing.T) {
	origin := originOf("https://rostics.ru/menu/burgers")
	tests := []struct {
		html string
		want string
	}{
		{`<img src="https://cdn.rostics.ru/a.png">`, "https://cdn.rostics.ru/a.png"},
		{`<img src="/a.png">`, "https://rostics.ru/a.png"},
		{`<img src="a.png">`, "https://rostics.ru/a.png"},
		{`<img data-lazy-src="//cdn.rostics.ru/b.png">`, "https://cdn.rostics.ru/b.png"},
		{`<img alt="none">`, ""},
	}
	for _, tt := range tests {
		doc := newDoc(t, tt.html)
		assert.Equal(t, tt.want, resolveImage(doc.Find("img"), origin), tt.html)
	}
	assert.Nil(t, originOf("not a url"))
}
