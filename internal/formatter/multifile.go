package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// MultiFileFormatter writes schema to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes an overview file and one file per table
func (f *MultiFileFormatter) Format(c schema.TableContainer) error {
	if f.OutputFormat != FormatMarkdown && f.OutputFormat != FormatText {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", f.OutputFormat)
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tables := sortedTables(c)
	if err := f.writeFile("_overview", func(w io.Writer) error { return f.writeOverview(w, tables) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range tables {
		table := table
		err := f.writeFile(table.Name, func(w io.Writer) error { return f.writeTable(w, table, c) })
		if err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeFile(name string, write func(io.Writer) error) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name+f.getFileExtension()))
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (f *MultiFileFormatter) writeOverview(w io.Writer, tables []*schema.Table) error {
	if f.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", f.getFileExtension())
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
	} else {
		_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW\n")
		_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", f.getFileExtension())
	}

	for _, table := range tables {
		if f.OutputFormat == FormatMarkdown {
			_, _ = fmt.Fprintf(w, "- **%s**%s", table.Name, tableLabels(table))
		} else {
			_, _ = fmt.Fprintf(w, "%s%s", table.Name, tableLabels(table))
		}
		if targets := relationTargets(table); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (relations: %s)", strings.Join(targets, ", "))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// writeTable writes a single table followed by the relations pointing at it
func (f *MultiFileFormatter) writeTable(w io.Writer, table *schema.Table, c schema.TableContainer) error {
	incoming := findIncomingRelations(table.Name, c)

	if f.OutputFormat == FormatMarkdown {
		if err := NewMarkdownFormatter(w).FormatTable(table); err != nil {
			return err
		}
		if len(incoming) > 0 {
			_, _ = fmt.Fprintf(w, "### Referenced by\n\n")
			for _, in := range incoming {
				_, _ = fmt.Fprintf(w, "- **%s:** %s\n", in.Source, FormatRelation(in.Relation))
			}
			_, _ = fmt.Fprintln(w)
		}
		return nil
	}

	if err := NewTextFormatter(w).FormatTable(table); err != nil {
		return err
	}
	if len(incoming) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "  REFERENCED BY:")
		for _, in := range incoming {
			_, _ = fmt.Fprintf(w, "    %s: %s\n", in.Source, FormatRelation(in.Relation))
		}
	}
	return nil
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}
