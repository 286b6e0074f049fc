// Package database drafts a schema from a live database catalog.
package database

import (
	"context"
	"fmt"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tordrt/schemagraph/internal/db"
	"github.com/tordrt/schemagraph/internal/introspect"
	"github.com/tordrt/schemagraph/internal/naming"
	"github.com/tordrt/schemagraph/internal/schema"
)

// Config configures a Source
type Config struct {
	Logger logger.Logger
	// URL is a postgres://, mysql:// or sqlite:// database URL
	URL string
	// SchemaName selects the PostgreSQL schema or MySQL database
	SchemaName string
	Tables     []string
	Exclude    []string
	Convention *naming.Convention
	// Catalog is used instead of connecting to URL when set
	Catalog introspect.Catalog
}

// Source introspects a database on every Draft
type Source struct {
	config Config
	logger logger.Logger
	errors []error
}

// New creates a database source
func New(config Config) *Source {
	return &Source{
		config: config,
		logger: config.Logger.WithPrefix("[database]"),
	}
}

// Draft connects, introspects every table and closes the connection.
// Per-table failures are recorded and surface through Errors.
func (s *Source) Draft(ctx context.Context) (*schema.Schema, error) {
	catalog := s.config.Catalog
	if catalog == nil {
		conn, err := db.Connect(ctx, s.config.URL, s.config.SchemaName)
		if err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}
		defer func() {
			if err := conn.Close(ctx); err != nil {
				s.logger.Warn("failed to close %s connection: %s", conn.Driver, err)
			}
		}()
		s.logger.Debug("connected to %s database", conn.Driver)
		catalog = conn.Catalog
	}

	in := introspect.New(catalog, introspect.Config{
		Logger:     s.config.Logger,
		Convention: s.config.Convention,
		Tables:     s.config.Tables,
		Exclude:    s.config.Exclude,
	})
	result, err := in.Introspect(ctx)
	s.errors = append(s.errors, in.Errors()...)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Errors returns and clears the per-table errors of previous drafts
func (s *Source) Errors() []error {
	errs := s.errors
	s.errors = nil
	return errs
}
