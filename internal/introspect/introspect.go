// Package introspect turns raw catalog metadata into a schema.Schema with
// typed relations, including many-to-many relations inferred from pivot
// table naming.
package introspect

import (
	"context"
	"fmt"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tordrt/schemagraph/internal/naming"
	"github.com/tordrt/schemagraph/internal/schema"
)

// Catalog is read access to a live database catalog
type Catalog interface {
	// Tables returns the names of every table the connection can enumerate
	Tables(ctx context.Context) ([]string, error)
	// Fields returns the columns of a table in ordinal order
	Fields(ctx context.Context, table string) ([]schema.Field, error)
	// Indexes returns the indexes of a table, primary key index excluded
	Indexes(ctx context.Context, table string) ([]schema.Index, error)
	// ForeignKeys returns the explicit foreign key constraints of a table
	ForeignKeys(ctx context.Context, table string) ([]schema.ForeignKey, error)
}

// Config configures an Introspector
type Config struct {
	Logger     logger.Logger
	Convention *naming.Convention
	// Tables restricts introspection to the listed tables when non-empty
	Tables []string
	// Exclude lists tables to skip
	Exclude []string
}

// Introspector builds a schema from a Catalog
type Introspector struct {
	catalog    Catalog
	logger     logger.Logger
	convention *naming.Convention
	tables     []string
	exclude    map[string]bool
	errors     []error
}

// New creates an introspector over the given catalog
func New(catalog Catalog, config Config) *Introspector {
	conv := config.Convention
	if conv == nil {
		conv = naming.Default()
	}
	exclude := make(map[string]bool, len(config.Exclude))
	for _, name := range config.Exclude {
		exclude[name] = true
	}
	return &Introspector{
		catalog:    catalog,
		logger:     config.Logger.WithPrefix("[introspect]"),
		convention: conv,
		tables:     config.Tables,
		exclude:    exclude,
	}
}

// Introspect reads every table from the catalog and infers relations. A
// failure to read one table is recorded (see Errors) and that table is
// skipped; only a failure to enumerate tables is returned.
func (i *Introspector) Introspect(ctx context.Context) (*schema.Schema, error) {
	names, err := i.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	s := schema.New()
	var candidates []string
	for _, name := range names {
		if i.exclude[name] {
			continue
		}
		table, err := i.extractTable(ctx, name)
		if err != nil {
			i.logger.Warn("skipping table %s: %s", name, err)
			i.errors = append(i.errors, fmt.Errorf("failed to extract table %s: %w", name, err))
			continue
		}
		if i.convention.IsPivotCandidate(name) {
			candidates = append(candidates, name)
		}
		s.Add(table)
	}

	pivots := InferPivots(s, candidates, i.convention)
	InferInverse(s)
	i.logger.Debug("introspected %d tables, %d pivot tables", s.Len(), len(pivots))
	return s, nil
}

// Errors returns and clears the per-table errors of the last runs
func (i *Introspector) Errors() []error {
	errs := i.errors
	i.errors = nil
	return errs
}

func (i *Introspector) tableNames(ctx context.Context) ([]string, error) {
	if len(i.tables) > 0 {
		return i.tables, nil
	}
	return i.catalog.Tables(ctx)
}

// extractTable extracts all information for a single table
func (i *Introspector) extractTable(ctx context.Context, name string) (*schema.Table, error) {
	table := &schema.Table{Name: name}

	fields, err := i.catalog.Fields(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract fields: %w", err)
	}
	for _, f := range fields {
		table.SetField(f)
	}

	indexes, err := i.catalog.Indexes(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	for _, idx := range indexes {
		table.SetIndex(idx)
	}

	fks, err := i.catalog.ForeignKeys(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	for _, fk := range fks {
		table.SetForeignKey(fk)
	}

	AttachDirectRelations(table)
	return table, nil
}
