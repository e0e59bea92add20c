package menu

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	priceCharsRe  = regexp.MustCompile(`[^\d.,]`)
	leadingFloat  = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)`)
	hyphenRunRe   = regexp.MustCompile(`-+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// CleanText collapses every whitespace run to a single space and trims the result.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Slugify converts a display name to a lowercase, hyphen-joined identifier.
// Letters of any script are kept, punctuation is dropped.
func Slugify(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	slug := whitespaceRun.ReplaceAllString(strings.TrimSpace(b.String()), "-")
	slug = hyphenRunRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// maxPrice bounds parsed prices; longer digit runs are not prices.
const maxPrice = math.MaxInt32

// ParsePrice extracts a rounded price from text such as "199 rub" or "199,50 ₽".
// A comma is read as the decimal separator. Returns nil when no number can be read.
func ParsePrice(text string) *int {
	cleaned := priceCharsRe.ReplaceAllString(text, "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	match := leadingFloat.FindString(cleaned)
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(value) || value > maxPrice {
		return nil
	}
	price := int(math.Round(value))
	return &price
}

// FormatPrice renders a price for display, "" when unknown.
func FormatPrice(price *int) string {
	if price == nil {
		return ""
	}
	return fmt.Sprintf("%d rub", *price)
}
