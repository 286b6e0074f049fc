package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

// TextFormatter formats schema as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(c schema.TableContainer) error {
	first := true
	for _, name := range c.Names() {
		table, ok := c.Table(name)
		if !ok {
			continue
		}
		if !first {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		first = false

		if err := f.FormatTable(table); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes a single table
func (f *TextFormatter) FormatTable(table *schema.Table) error {
	// Table header with primary key
	pkStr := ""
	if pk := primaryKeys(table); len(pk) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(pk, ", "))
	}
	if _, err := fmt.Fprintf(f.writer, "TABLE %s%s%s\n", table.Name, pkStr, tableLabels(table)); err != nil {
		return err
	}

	for _, field := range table.Fields {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatField(field))
	}

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "    %s\n", FormatRelation(rel))
		}
	}

	if len(table.ForeignKeys) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  FOREIGN KEYS:")
		for _, fk := range table.ForeignKeys {
			target := fk.ForeignTable
			if fk.ForeignColumn != "" {
				target += "." + fk.ForeignColumn
			}
			_, _ = fmt.Fprintf(f.writer, "    %s: %s → %s\n", fk.Name, fk.Column, target)
		}
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			unique := ""
			if idx.IsUnique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.Name, strings.Join(idx.Fields, ", "), unique)
		}
	}

	return nil
}

func (f *TextFormatter) formatField(field schema.Field) string {
	parts := []string{field.Name + ":", field.Type}
	for _, c := range fieldConstraints(field) {
		if c == "PK" {
			continue // already in the table header
		}
		parts = append(parts, c)
	}
	return strings.Join(parts, " ")
}
