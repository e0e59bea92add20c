package formatter

import (
	"fmt"
	"path/filepath"
	"strings"

	"menuscout/internal/scraper"
)

// Formats lists the supported output formats.
var Formats = []string{"html", "text", "markdown", "json", "csv"}

type renderer struct {
	contentType string
	render      func(scraper.Content) (string, error)
}

var renderers = map[string]renderer{
	"html":     {"text/html; charset=utf-8", scraper.Content.ToHTML},
	"text":     {"text/plain; charset=utf-8", scraper.Content.ToText},
	"markdown": {"text/markdown; charset=utf-8", scraper.Content.ToMarkdown},
	"csv":      {"text/csv; charset=utf-8", scraper.Content.ToCSV},
	"json": {"application/json; charset=utf-8", func(c scraper.Content) (string, error) {
		b, err := c.ToJSON()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}},
}

var aliases = map[string]string{
	"md":  "markdown",
	"txt": "text",
	"htm": "html",
}

// Format renders content in the named format.
func Format(content scraper.Content, format string) (string, error) {
	r, ok := renderers[format]
	if !ok {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
	return r.render(content)
}

// Valid reports whether format is one of Formats.
func Valid(format string) bool {
	_, ok := renderers[format]
	return ok
}

// Normalize maps user input such as "MD" or "txt" to a format name. Unknown
// input is returned lowercased so Valid rejects it.
func Normalize(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if canonical, ok := aliases[format]; ok {
		return canonical
	}
	return format
}

// ContentType is the HTTP media type for format, "" when unknown.
func ContentType(format string) string {
	return renderers[format].contentType
}

// InferFromExtension infers the output format from a file name, "" when the
// extension is not recognized.
func InferFromExtension(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return ""
	}
	if format := Normalize(ext); Valid(format) {
		return format
	}
	return ""
}
