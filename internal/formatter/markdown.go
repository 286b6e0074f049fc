package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

// MarkdownFormatter formats schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(c schema.TableContainer) error {
	if _, err := fmt.Fprintln(f.writer, "# Database Schema"); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(f.writer)

	for _, name := range c.Names() {
		table, ok := c.Table(name)
		if !ok {
			continue
		}
		if err := f.FormatTable(table); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable formats a single table (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatTable(table *schema.Table) error {
	if _, err := fmt.Fprintf(f.writer, "## %s%s\n\n", table.Name, tableLabels(table)); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(f.writer, "### Fields")
	_, _ = fmt.Fprintln(f.writer)
	for _, field := range table.Fields {
		constraints := fieldConstraints(field)
		if len(constraints) > 0 {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", field.Name, field.Type, strings.Join(constraints, ", "))
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", field.Name, field.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Relations")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", rel.Target, FormatRelation(rel))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(table.ForeignKeys) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Foreign Keys")
		_, _ = fmt.Fprintln(f.writer)
		for _, fk := range table.ForeignKeys {
			target := fk.ForeignTable
			if fk.ForeignColumn != "" {
				target += "." + fk.ForeignColumn
			}
			_, _ = fmt.Fprintf(f.writer, "- %s: %s → %s\n", fk.Name, fk.Column, target)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Idx")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range table.Indexes {
			if idx.IsUnique {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n", idx.Name, strings.Join(idx.Fields, ", "))
			} else {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n", idx.Name, strings.Join(idx.Fields, ", "))
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}
