package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"menuscout/internal/cache"
	"menuscout/internal/formatter"
	"menuscout/internal/menu"
	"menuscout/internal/presenter"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var (
		category     string
		query        string
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the cached menu, filtered by category and search text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If output file is specified but format is not, infer format from file extension
			if outputFile != "" && !cmd.Flags().Changed("format") {
				if inferred := formatter.InferFromExtension(outputFile); inferred != "" {
					outputFormat = inferred
				}
			}
			outputFormat = formatter.Normalize(outputFormat)
			if !formatter.Valid(outputFormat) {
				return fmt.Errorf("invalid output format: %s", outputFormat)
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			record, err := a.cache.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load menu: %w", err)
			}

			session := presenter.Session{Category: presenter.AllCategories, Query: query}
			if record != nil {
				id, err := resolveCategory(record.Snapshot, category)
				if err != nil {
					return err
				}
				session.Category = id
			}

			out, err := formatter.Format(presenter.NewView(record, session, a.cache), outputFormat)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}

			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(out), 0644); err != nil {
					return fmt.Errorf("failed to write to file: %w", err)
				}
				fmt.Fprintf(os.Stderr, "Output written to: %s\n", outputFile)
				return nil
			}
			fmt.Println(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", presenter.AllCategories, "Category id, slug or name")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search text matched against names and descriptions")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format (html, text, markdown, json, csv)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (format inferred from extension if -f not specified)")
	return cmd
}

// resolveCategory maps a category id, slug or name to its id.
func resolveCategory(snap menu.Snapshot, category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, presenter.AllCategories) {
		return presenter.AllCategories, nil
	}
	if c, ok := snap.CategoryByID(category); ok {
		return c.ID, nil
	}
	for _, c := range snap.Categories {
		if strings.EqualFold(c.Slug, category) || strings.EqualFold(c.Name, category) {
			return c.ID, nil
		}
	}
	if slug := menu.Slugify(category); slug != "" {
		for _, c := range snap.Categories {
			if c.Slug == slug {
				return c.ID, nil
			}
		}
	}
	return "", fmt.Errorf("unknown category: %s", category)
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the cached categories with their item counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			record, err := a.cache.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load menu: %w", err)
			}
			if record == nil {
				fmt.Fprintln(os.Stderr, "No menu saved yet")
				return nil
			}

			writeCategories(os.Stdout, record, a.cache)
			return nil
		},
	}
}

func writeCategories(w io.Writer, record *cache.Record, c *cache.Cache) {
	counts := record.CountByCategory()

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Name", "Slug", "Items"})
	for _, cat := range record.Categories {
		t.AppendRow(table.Row{cat.ID, cat.Name, cat.Slug, counts[cat.ID]})
	}
	if n := counts[""]; n > 0 {
		t.AppendRow(table.Row{"-", "(uncategorized)", "-", n})
	}
	t.Render()

	fmt.Fprintf(w, "\n%d items, updated %s\n", len(record.Items), c.Age(record.CachedAt))
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the cached menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cache.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear menu: %w", err)
			}
			fmt.Fprintln(os.Stderr, "Menu cache cleared")
			return nil
		},
	}
}
