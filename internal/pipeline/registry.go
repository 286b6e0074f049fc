package pipeline

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// DrafterFactory constructs a Drafter
type DrafterFactory func() (Drafter, error)

// ArchiverFactory constructs an Archiver
type ArchiverFactory func() (Archiver, error)

// ReaderFactory constructs a Reader
type ReaderFactory func() (Reader, error)

// Registry maps handler names to constructors so handlers can be selected
// by name from configuration
type Registry struct {
	drafters  map[string]DrafterFactory
	archivers map[string]ArchiverFactory
	readers   map[string]ReaderFactory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		drafters:  make(map[string]DrafterFactory),
		archivers: make(map[string]ArchiverFactory),
		readers:   make(map[string]ReaderFactory),
	}
}

// RegisterDrafter registers a drafter constructor, replacing any previous
// one with the same name
func (r *Registry) RegisterDrafter(name string, f DrafterFactory) {
	r.drafters[name] = f
}

// RegisterArchiver registers an archiver constructor
func (r *Registry) RegisterArchiver(name string, f ArchiverFactory) {
	r.archivers[name] = f
}

// RegisterReader registers a reader constructor
func (r *Registry) RegisterReader(name string, f ReaderFactory) {
	r.readers[name] = f
}

// Drafters constructs the named drafters in order
func (r *Registry) Drafters(names ...string) ([]Drafter, error) {
	handlers := make([]Drafter, 0, len(names))
	for _, name := range names {
		f, ok := r.drafters[name]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownHandler, "drafter %q (known: %v)", name, keys(r.drafters))
		}
		h, err := f()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create drafter %q", name)
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}

// Archivers constructs the named archivers in order
func (r *Registry) Archivers(names ...string) ([]Archiver, error) {
	handlers := make([]Archiver, 0, len(names))
	for _, name := range names {
		f, ok := r.archivers[name]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownHandler, "archiver %q (known: %v)", name, keys(r.archivers))
		}
		h, err := f()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create archiver %q", name)
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}

// Reader constructs the named reader. An empty name yields no reader.
func (r *Registry) Reader(name string) (Reader, error) {
	if name == "" {
		return nil, nil
	}
	f, ok := r.readers[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownHandler, "reader %q (known: %v)", name, keys(r.readers))
	}
	h, err := f()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create reader %q", name)
	}
	return h, nil
}

func keys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
