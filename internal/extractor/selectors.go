package extractor

// Selectors are the CSS selector groups a site uses for its menu page. Every
// field is a comma separated group. Site redesigns break these silently, so
// each lookup has a looser fallback.
type Selectors struct {
	CategoryItem     string
	CategoryName     string
	CategoryHeadings string

	MenuItem    string
	AltMenuCard string

	ItemName                string
	ItemNameFallback        string
	ItemPrice               string
	ItemPriceFallback       string
	ItemDescription         string
	ItemDescriptionFallback string
	ItemImage               string
	ItemImageFallback       string

	Section         string
	SectionHeader   string
	SectionItemName string

	// ItemLike matches freshly inserted nodes that may carry new items.
	ItemLike string
}

// DefaultSelectors covers the common data-testid and class conventions of
// menu pages built on the usual storefront templates.
func DefaultSelectors() Selectors {
	return Selectors{
		CategoryItem:     `[data-testid="category-item"], .category-item, .menu-category`,
		CategoryName:     `[data-testid="category-name"], .category-name, h2, h3`,
		CategoryHeadings: `h2, h3.category-title, [class*="category-header"]`,

		MenuItem:    `[data-testid="menu-item"], .menu-item, .product-card, article.product`,
		AltMenuCard: `.menu-card, .dish-card, [class*="product"], [class*="menu-item"]`,

		ItemName:                `[data-testid="item-name"], .product-name, .item-title, h3, h4`,
		ItemNameFallback:        `h3, h4, [class*="name"], [class*="title"]`,
		ItemPrice:               `[data-testid="item-price"], .product-price, .price, .item-price`,
		ItemPriceFallback:       `[class*="price"], [class*="cost"]`,
		ItemDescription:         `[data-testid="item-description"], .product-description, .description, p`,
		ItemDescriptionFallback: `p, [class*="desc"]`,
		ItemImage:               `[data-testid="item-image"], .product-image img, .item-image img, img`,
		ItemImageFallback:       `img`,

		Section:         `section, [class*="category-section"]`,
		SectionHeader:   `h2, h3, [class*="category-header"]`,
		SectionItemName: `h3, h4, [class*="name"]`,

		ItemLike: `[class*="product"], [class*="menu-item"], article`,
	}
}
