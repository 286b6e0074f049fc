// Package db connects to live databases and exposes their catalogs.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tordrt/schemagraph/internal/introspect"
)

// Driver names a supported database engine
type Driver string

const (
	Postgres Driver = "postgres"
	MySQL    Driver = "mysql"
	SQLite   Driver = "sqlite"
)

// Connection is an open database connection together with its catalog
type Connection struct {
	Driver  Driver
	Catalog introspect.Catalog

	close func(ctx context.Context) error
}

// Close closes the underlying connection
func (c *Connection) Close(ctx context.Context) error {
	if c.close == nil {
		return nil
	}
	return c.close(ctx)
}

// ParseDatabaseURL detects the database type and returns the driver
// connection string
func ParseDatabaseURL(url string) (Driver, string, error) {
	if url == "" {
		return "", "", fmt.Errorf("database URL is required")
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return Postgres, url, nil
	}

	if strings.HasPrefix(url, "mysql://") {
		// Strip mysql:// prefix for the Go MySQL driver
		return MySQL, strings.TrimPrefix(url, "mysql://"), nil
	}

	if strings.HasPrefix(url, "sqlite://") {
		// Strip sqlite:// prefix to get file path
		return SQLite, strings.TrimPrefix(url, "sqlite://"), nil
	}

	return "", "", fmt.Errorf("invalid database URL scheme (must start with postgres://, mysql://, or sqlite://)")
}

// ParseDatabaseName returns the database name of a MySQL DSN
func ParseDatabaseName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse dsn: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("dsn has no database name")
	}
	return cfg.DBName, nil
}

// Connect opens a connection for the URL. schemaName selects the PostgreSQL
// schema or MySQL database; when empty it defaults to public or the database
// named in the DSN.
func Connect(ctx context.Context, url, schemaName string) (*Connection, error) {
	driver, connStr, err := ParseDatabaseURL(url)
	if err != nil {
		return nil, err
	}

	switch driver {
	case Postgres:
		return connectPostgres(ctx, connStr, schemaName)
	case MySQL:
		return connectMySQL(ctx, connStr, schemaName)
	default:
		return connectSQLite(ctx, connStr)
	}
}

func connectPostgres(ctx context.Context, connStr, schemaName string) (*Connection, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Connection{
		Driver:  Postgres,
		Catalog: NewPostgresCatalog(conn, schemaName),
		close:   conn.Close,
	}, nil
}

func connectMySQL(ctx context.Context, dsn, schemaName string) (*Connection, error) {
	if schemaName == "" {
		name, err := ParseDatabaseName(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to determine database name: %w", err)
		}
		schemaName = name
	}

	db, err := openSQL(ctx, "mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	return &Connection{
		Driver:  MySQL,
		Catalog: NewMySQLCatalog(db, schemaName),
		close:   func(context.Context) error { return db.Close() },
	}, nil
}

func connectSQLite(ctx context.Context, path string) (*Connection, error) {
	db, err := openSQL(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	return &Connection{
		Driver:  SQLite,
		Catalog: NewSQLiteCatalog(db),
		close:   func(context.Context) error { return db.Close() },
	}, nil
}

func openSQL(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
