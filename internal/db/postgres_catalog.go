package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/tordrt/schemagraph/internal/introspect"
	"github.com/tordrt/schemagraph/internal/schema"
)

const varcharType = "varchar"

// pgQuerier is satisfied by *pgx.Conn and *pgxpool.Pool
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresCatalog reads table metadata from a PostgreSQL schema
type PostgresCatalog struct {
	conn   pgQuerier
	schema string
}

var _ introspect.Catalog = (*PostgresCatalog)(nil)

// NewPostgresCatalog creates a catalog over the given schema name
func NewPostgresCatalog(conn pgQuerier, schemaName string) *PostgresCatalog {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresCatalog{
		conn:   conn,
		schema: schemaName,
	}
}

// Tables returns the base tables of the schema
func (c *PostgresCatalog) Tables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := c.conn.Query(ctx, query, c.schema)
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

// normalizePostgresType maps verbose SQL type names to commonly-used PostgreSQL equivalents
func normalizePostgresType(dataType, udtName string, charMaxLength *int) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "time with time zone":
		return "timetz"
	case "time without time zone":
		return "time"
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLength)
		}
		return varcharType
	case "character":
		if charMaxLength != nil {
			return fmt.Sprintf("char(%d)", *charMaxLength)
		}
		return "char"
	case "ARRAY":
		// udt_name has underscore prefix for arrays (e.g., "_text" for text[], "_int4" for integer[])
		if len(udtName) > 0 && udtName[0] == '_' {
			return normalizeUdtName(udtName[1:]) + "[]"
		}
		return "array"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

// normalizeUdtName converts PostgreSQL internal type names to more readable forms
func normalizeUdtName(udtName string) string {
	switch udtName {
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "int2":
		return "smallint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	default:
		return udtName
	}
}

// Fields returns the columns of a table with primary key, unique and
// identity information
func (c *PostgresCatalog) Fields(ctx context.Context, tableName string) ([]schema.Field, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.udt_name,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length,
			c.is_identity,
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.table_schema = $1
					AND tc.table_name = $2
					AND tc.constraint_type = 'PRIMARY KEY'
					AND kcu.column_name = c.column_name
			) AS is_primary,
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.constraint_column_usage ccu
					ON tc.constraint_name = ccu.constraint_name
					AND tc.table_schema = ccu.table_schema
				WHERE tc.table_schema = $1
					AND tc.table_name = $2
					AND tc.constraint_type = 'UNIQUE'
					AND ccu.column_name = c.column_name
			) AS is_unique
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := c.conn.Query(ctx, query, c.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []schema.Field
	for rows.Next() {
		var f schema.Field
		var dataType, udtName, nullable, identity string
		var defaultVal *string
		var charMaxLength *int

		if err := rows.Scan(&f.Name, &dataType, &udtName, &nullable, &defaultVal, &charMaxLength, &identity, &f.PrimaryKey, &f.Unique); err != nil {
			return nil, err
		}

		f.Type = normalizePostgresType(dataType, udtName, charMaxLength)
		f.Nullable = nullable == "YES"
		f.DefaultValue = defaultVal
		if charMaxLength != nil {
			f.MaxLength = *charMaxLength
		}
		f.AutoIncrement = identity == "YES" || (defaultVal != nil && strings.HasPrefix(*defaultVal, "nextval("))

		fields = append(fields, f)
	}

	return fields, rows.Err()
}

// Indexes returns the non primary key indexes of a table
func (c *PostgresCatalog) Indexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`

	rows, err := c.conn.Query(ctx, query, c.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.Fields); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

// ForeignKeys returns the foreign key constraints declared on a table
func (c *PostgresCatalog) ForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`

	rows, err := c.conn.Query(ctx, query, c.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	seen := make(map[string]bool)
	for rows.Next() {
		var fk schema.ForeignKey
		var foreignColumn *string
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ForeignTable, &foreignColumn); err != nil {
			return nil, err
		}
		// composite constraints are reported by their first column
		if seen[fk.Name] {
			continue
		}
		seen[fk.Name] = true
		if foreignColumn != nil {
			fk.ForeignColumn = *foreignColumn
		}
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}
