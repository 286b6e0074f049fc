package archive

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tordrt/schemagraph/internal/codec"
	"github.com/tordrt/schemagraph/internal/pipeline"
	"github.com/tordrt/schemagraph/internal/schema"
)

// FileConfig configures a File
type FileConfig struct {
	Logger logger.Logger
	Path   string
	// Format overrides the format implied by the file extension
	Format codec.Format
}

// File archives a schema as a single serialized document
type File struct {
	logger logger.Logger
	path   string
	format codec.Format
	reads  readTracker
}

var (
	_ pipeline.Archiver = (*File)(nil)
	_ pipeline.Reader   = (*File)(nil)
)

// NewFile creates a file archive
func NewFile(config FileConfig) (*File, error) {
	if config.Path == "" {
		return nil, errors.New("archive file path is required")
	}
	format := config.Format
	if format == "" {
		f, err := codec.FormatFromPath(config.Path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	return &File{
		logger: config.Logger.WithPrefix("[file]"),
		path:   config.Path,
		format: format,
	}, nil
}

// Path returns the archive file path
func (f *File) Path() string {
	return f.path
}

// Archive writes the schema to the file, replacing its contents
func (f *File) Archive(ctx context.Context, tables schema.TableContainer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := codec.Marshal(f.format, tables)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", f.path)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}
	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", f.path)
	}
	f.logger.Debug("archived schema to %s", f.path)
	return nil
}

// Read returns the archived schema. The file is opened and decoded on first
// access of the returned container.
func (f *File) Read(ctx context.Context) (schema.TableContainer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(f.path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(pipeline.ErrNotArchived, "%s", f.path)
		}
		return nil, errors.Wrapf(err, "failed to stat %s", f.path)
	}

	var (
		once   sync.Once
		loaded *schema.Schema
		err    error
	)
	load := func() (*schema.Schema, error) {
		once.Do(func() {
			var data []byte
			data, err = os.ReadFile(f.path)
			if err != nil {
				err = errors.Wrapf(err, "failed to read %s", f.path)
				return
			}
			loaded, err = codec.Unmarshal(f.format, data)
			if err != nil {
				err = errors.Wrapf(err, "failed to decode %s", f.path)
				return
			}
			f.logger.Trace("loaded %d tables from %s", loaded.Len(), f.path)
		})
		return loaded, err
	}

	lazy := schema.NewLazy(
		func() ([]string, error) {
			s, err := load()
			if err != nil {
				return nil, err
			}
			return s.Names(), nil
		},
		func(name string) (*schema.Table, error) {
			s, err := load()
			if err != nil {
				return nil, err
			}
			t, ok := s.Table(name)
			if !ok {
				return nil, errors.Newf("table %s missing from %s", name, f.path)
			}
			return t, nil
		},
	)
	f.reads.track(lazy)
	return lazy, nil
}

// Errors returns and clears the load failures of containers returned by Read
func (f *File) Errors() []error {
	return f.reads.drain()
}
