package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/schemagraph/internal/introspect"
	"github.com/tordrt/schemagraph/internal/schema"
)

// SQLiteCatalog reads table metadata from a SQLite database
type SQLiteCatalog struct {
	db *sql.DB
}

var _ introspect.Catalog = (*SQLiteCatalog)(nil)

// NewSQLiteCatalog creates a catalog over the given database
func NewSQLiteCatalog(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

// Tables returns the user tables of the database
func (c *SQLiteCatalog) Tables(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

func pragma(name, arg string) string {
	return fmt.Sprintf("PRAGMA %s(\"%s\")", name, strings.ReplaceAll(arg, `"`, `""`))
}

// Fields returns the columns of a table
func (c *SQLiteCatalog) Fields(ctx context.Context, tableName string) ([]schema.Field, error) {
	rows, err := c.db.QueryContext(ctx, pragma("table_info", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []schema.Field
	pkCount := 0
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}

		f := schema.Field{
			Name:       name,
			Type:       colType,
			Nullable:   notNull == 0 && pk == 0,
			PrimaryKey: pk > 0,
		}
		if defaultValue.Valid {
			f.DefaultValue = &defaultValue.String
		}
		if pk > 0 {
			pkCount++
		}
		// a single-column INTEGER PRIMARY KEY aliases the rowid
		if pk == 1 && strings.EqualFold(colType, "integer") {
			f.AutoIncrement = true
		}

		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if pkCount > 1 {
		for i := range fields {
			fields[i].AutoIncrement = false
		}
	}

	unique, err := c.uniqueColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to check unique constraints: %w", err)
	}
	for i := range fields {
		// Primary keys are handled separately
		if !fields[i].PrimaryKey && unique[fields[i].Name] {
			fields[i].Unique = true
		}
	}

	return fields, nil
}

type sqliteIndex struct {
	name   string
	unique bool
}

func (c *SQLiteCatalog) indexList(ctx context.Context, tableName string) ([]sqliteIndex, error) {
	rows, err := c.db.QueryContext(ctx, pragma("index_list", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []sqliteIndex
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		list = append(list, sqliteIndex{name: name, unique: unique == 1})
	}
	return list, rows.Err()
}

// uniqueColumns returns the columns covered by a single-column unique index,
// including the implicit indexes of UNIQUE constraints
func (c *SQLiteCatalog) uniqueColumns(ctx context.Context, tableName string) (map[string]bool, error) {
	list, err := c.indexList(ctx, tableName)
	if err != nil {
		return nil, err
	}
	unique := make(map[string]bool)
	for _, idx := range list {
		if !idx.unique {
			continue
		}
		columns, err := c.indexColumns(ctx, idx.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 1 {
			unique[columns[0]] = true
		}
	}
	return unique, nil
}

// Indexes returns the explicitly created indexes of a table
func (c *SQLiteCatalog) Indexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	list, err := c.indexList(ctx, tableName)
	if err != nil {
		return nil, err
	}

	var indexes []schema.Index
	for _, h := range list {
		// Skip auto-generated primary key and unique constraint indexes
		if strings.HasPrefix(h.name, "sqlite_autoindex") {
			continue
		}
		columns, err := c.indexColumns(ctx, h.name)
		if err != nil {
			return nil, err
		}
		if len(columns) > 0 {
			indexes = append(indexes, schema.Index{
				Name:     h.name,
				Fields:   columns,
				IsUnique: h.unique,
			})
		}
	}

	return indexes, nil
}

func (c *SQLiteCatalog) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, pragma("index_info", indexName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}

		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}

// ForeignKeys returns the foreign key constraints of a table. SQLite does not
// name constraints, so names are derived from the table and constraint id.
// The referenced column is empty when the constraint targets the implicit
// primary key.
func (c *SQLiteCatalog) ForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	rows, err := c.db.QueryContext(ctx, pragma("foreign_key_list", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		if seq > 0 {
			continue
		}

		fks = append(fks, schema.ForeignKey{
			Name:          fmt.Sprintf("%s_fk_%d", tableName, id),
			Column:        fromCol,
			ForeignTable:  targetTable,
			ForeignColumn: toCol.String,
		})
	}

	return fks, rows.Err()
}
