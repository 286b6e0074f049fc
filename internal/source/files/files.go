// Package files drafts a schema from a directory of table definition files.
package files

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	js "github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tordrt/schemagraph/internal/codec"
	"github.com/tordrt/schemagraph/internal/introspect"
	"github.com/tordrt/schemagraph/internal/naming"
	"github.com/tordrt/schemagraph/internal/schema"
)

//go:embed definition.schema.json
var definitionSchema []byte

const definitionURL = "file:///definition.schema.json"

// Config configures a Source
type Config struct {
	Logger     logger.Logger
	Dir        string
	Convention *naming.Convention
}

// Source reads *.json, *.yaml, *.yml and *.toml definition files
type Source struct {
	logger     logger.Logger
	dir        string
	convention *naming.Convention
	validator  *js.Schema
	errors     []error
}

// New creates a file source over a directory
func New(config Config) (*Source, error) {
	if config.Dir == "" {
		return nil, errors.New("definition directory is required")
	}
	compiler := js.NewCompiler()
	if err := compiler.AddResource(definitionURL, bytes.NewReader(definitionSchema)); err != nil {
		return nil, errors.Wrap(err, "failed to add definition schema")
	}
	validator, err := compiler.Compile(definitionURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile definition schema")
	}
	conv := config.Convention
	if conv == nil {
		conv = naming.Default()
	}
	return &Source{
		logger:     config.Logger.WithPrefix("[files]"),
		dir:        config.Dir,
		convention: conv,
		validator:  validator,
	}, nil
}

// Draft reads the definition files in name order, later files overriding
// earlier ones per key, then infers relations over the combined tables.
// Unreadable or invalid files are recorded and skipped.
func (s *Source) Draft(ctx context.Context) (*schema.Schema, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", s.dir)
	}

	result := schema.New()
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		format, err := codec.FormatFromPath(path)
		if err != nil || format == codec.MsgPack {
			continue
		}
		parsed, err := s.readFile(path, format)
		if err != nil {
			s.logger.Warn("skipping %s: %s", path, err)
			s.errors = append(s.errors, err)
			continue
		}
		s.logger.Trace("read %d tables from %s", parsed.Len(), path)
		result = schema.Merge(result, parsed)
	}

	pivots := introspect.Infer(result, s.convention)
	s.logger.Debug("drafted %d tables from %s, %d pivot tables", result.Len(), s.dir, len(pivots))
	return result, nil
}

func (s *Source) readFile(path string, format codec.Format) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	doc, err := codec.Generic(format, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if err := s.validator.Validate(doc); err != nil {
		return nil, errors.Wrapf(err, "invalid definition %s", path)
	}
	parsed, err := codec.Unmarshal(format, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return parsed, nil
}

// Errors returns and clears the per-file errors of previous drafts
func (s *Source) Errors() []error {
	errs := s.errors
	s.errors = nil
	return errs
}
