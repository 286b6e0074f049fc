package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tordrt/schemagraph/internal/introspect"
	"github.com/tordrt/schemagraph/internal/schema"
)

// MySQLCatalog reads table metadata from a MySQL database
type MySQLCatalog struct {
	db         *sql.DB
	schemaName string
}

var _ introspect.Catalog = (*MySQLCatalog)(nil)

// NewMySQLCatalog creates a catalog over the given database name
func NewMySQLCatalog(db *sql.DB, schemaName string) *MySQLCatalog {
	return &MySQLCatalog{
		db:         db,
		schemaName: schemaName,
	}
}

// Tables returns the base tables of the database
func (c *MySQLCatalog) Tables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := c.db.QueryContext(ctx, query, c.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// Fields returns the columns of a table
func (c *MySQLCatalog) Fields(ctx context.Context, tableName string) ([]schema.Field, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length,
			c.column_key,
			c.extra
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := c.db.QueryContext(ctx, query, c.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []schema.Field
	for rows.Next() {
		var f schema.Field
		var nullable, columnKey, extra string
		var defaultVal sql.NullString
		var maxLength sql.NullInt64

		if err := rows.Scan(&f.Name, &f.Type, &nullable, &defaultVal, &maxLength, &columnKey, &extra); err != nil {
			return nil, err
		}

		f.Nullable = nullable == "YES"
		f.PrimaryKey = columnKey == "PRI"
		f.Unique = columnKey == "UNI"
		f.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		if defaultVal.Valid {
			f.DefaultValue = &defaultVal.String
		}
		if maxLength.Valid {
			f.MaxLength = int(maxLength.Int64)
		}

		fields = append(fields, f)
	}

	return fields, rows.Err()
}

// Indexes returns the non primary key indexes of a table
func (c *MySQLCatalog) Indexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`

	rows, err := c.db.QueryContext(ctx, query, c.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var isUnique int
		var columnNames string

		if err := rows.Scan(&idx.Name, &isUnique, &columnNames); err != nil {
			return nil, err
		}

		idx.IsUnique = isUnique == 1
		idx.Fields = strings.Split(columnNames, ",")

		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

// ForeignKeys returns the foreign key constraints declared on a table
func (c *MySQLCatalog) ForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
			AND kcu.ordinal_position = 1
		ORDER BY kcu.constraint_name
	`

	rows, err := c.db.QueryContext(ctx, query, c.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var fk schema.ForeignKey
		var foreignColumn sql.NullString
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ForeignTable, &foreignColumn); err != nil {
			return nil, err
		}
		fk.ForeignColumn = foreignColumn.String
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}
