// Package pipeline sequences draft, archive and read handlers around a
// single current schema.
package pipeline

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/tordrt/schemagraph/internal/schema"
)

var (
	// ErrNoSchemaAvailable is returned by Get when no automation path
	// produced a schema
	ErrNoSchemaAvailable = errors.New("no schema available")
	// ErrNotArchived is returned by a Reader when nothing has been archived
	ErrNotArchived = errors.New("no archived schema")
	// ErrUnknownHandler is returned when a registry lookup fails
	ErrUnknownHandler = errors.New("unknown handler")
)

// Drafter produces a fresh schema from a source. Errors returned by Draft
// are not repeated by Errors, which reports only non-fatal source errors.
type Drafter interface {
	Draft(ctx context.Context) (*schema.Schema, error)
	Errors() []error
}

// Archiver persists a schema
type Archiver interface {
	Archive(ctx context.Context, tables schema.TableContainer) error
	Errors() []error
}

// Reader reconstructs a previously archived schema, possibly lazily
type Reader interface {
	Read(ctx context.Context) (schema.TableContainer, error)
	Errors() []error
}

// IsContractViolation reports whether err is a caller programming error,
// such as archiving without a current schema
func IsContractViolation(err error) bool {
	return errors.HasAssertionFailure(err)
}
