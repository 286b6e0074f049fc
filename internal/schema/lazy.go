package schema

import "sync"

// LoadNamesFunc returns the ordered table names of a persisted schema
type LoadNamesFunc func() ([]string, error)

// LoadTableFunc returns one table of a persisted schema
type LoadTableFunc func(name string) (*Table, error)

// Lazy is a TableContainer whose table names are loaded on first use and
// whose tables are loaded on first access. Load failures are recorded and
// surface through Errors; the failing table is reported as absent.
type Lazy struct {
	loadNames LoadNamesFunc
	loadTable LoadTableFunc

	namesOnce sync.Once
	names     []string
	known     map[string]bool
	tables    map[string]*Table
	failed    map[string]bool
	errors    []error
}

var _ TableContainer = (*Lazy)(nil)

// NewLazy creates a lazily populated container
func NewLazy(loadNames LoadNamesFunc, loadTable LoadTableFunc) *Lazy {
	return &Lazy{
		loadNames: loadNames,
		loadTable: loadTable,
		tables:    make(map[string]*Table),
		failed:    make(map[string]bool),
	}
}

func (l *Lazy) init() {
	l.namesOnce.Do(func() {
		names, err := l.loadNames()
		if err != nil {
			l.errors = append(l.errors, err)
			return
		}
		l.names = names
		l.known = make(map[string]bool, len(names))
		for _, n := range names {
			l.known[n] = true
		}
	})
}

// Names returns the table names in their archived order
func (l *Lazy) Names() []string {
	l.init()
	return append([]string(nil), l.names...)
}

// Table resolves a table, loading it on first access
func (l *Lazy) Table(name string) (*Table, bool) {
	l.init()
	if !l.known[name] {
		return nil, false
	}
	if t, ok := l.tables[name]; ok {
		return t, true
	}
	if l.failed[name] {
		return nil, false
	}
	t, err := l.loadTable(name)
	if err != nil {
		l.failed[name] = true
		l.errors = append(l.errors, err)
		return nil, false
	}
	l.tables[name] = t
	return t, true
}

// Loaded returns how many tables have been materialized so far
func (l *Lazy) Loaded() int {
	return len(l.tables)
}

// Errors returns and clears the load errors recorded so far
func (l *Lazy) Errors() []error {
	errs := l.errors
	l.errors = nil
	return errs
}
