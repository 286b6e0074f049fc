// Package schema holds the in-memory description of a database: tables with
// their fields, indexes, foreign keys and relations.
package schema

// TableContainer is keyed access to tables. Implementations may resolve
// tables lazily, so callers must not assume eager materialization.
type TableContainer interface {
	// Names returns the table names in discovery order
	Names() []string
	// Table returns the table with the given name
	Table(name string) (*Table, bool)
}

// Schema is an eagerly materialized, ordered set of tables
type Schema struct {
	tables []*Table
	index  map[string]int
}

var _ TableContainer = (*Schema)(nil)

// New creates an empty schema, optionally seeded with tables
func New(tables ...*Table) *Schema {
	s := &Schema{index: make(map[string]int)}
	for _, t := range tables {
		s.Add(t)
	}
	return s
}

// Add inserts a table. A table with the same name is replaced in place,
// keeping its original position.
func (s *Schema) Add(t *Table) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[t.Name]; ok {
		s.tables[i] = t
		return
	}
	s.index[t.Name] = len(s.tables)
	s.tables = append(s.tables, t)
}

// Table returns the table with the given name
func (s *Schema) Table(name string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.tables[i], true
}

// Has reports whether a table with the given name exists
func (s *Schema) Has(name string) bool {
	_, ok := s.Table(name)
	return ok
}

// Names returns the table names in discovery order
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.tables))
	for i, t := range s.tables {
		names[i] = t.Name
	}
	return names
}

// Tables returns the tables in discovery order
func (s *Schema) Tables() []*Table {
	if s == nil {
		return nil
	}
	return s.tables
}

// Len returns the number of tables
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tables)
}

// Remove deletes a table by name
func (s *Schema) Remove(name string) {
	i, ok := s.index[name]
	if !ok {
		return
	}
	s.tables = append(s.tables[:i], s.tables[i+1:]...)
	delete(s.index, name)
	for j := i; j < len(s.tables); j++ {
		s.index[s.tables[j].Name] = j
	}
}

// Clone returns a deep copy of the schema
func (s *Schema) Clone() *Schema {
	c := New()
	for _, t := range s.Tables() {
		c.Add(t.Clone())
	}
	return c
}

// Materialize resolves every table of a container into an eager Schema.
// Tables a lazy container fails to resolve are left out.
func Materialize(c TableContainer) *Schema {
	if s, ok := c.(*Schema); ok {
		return s
	}
	s := New()
	if c == nil {
		return s
	}
	for _, name := range c.Names() {
		if t, ok := c.Table(name); ok {
			s.Add(t)
		}
	}
	return s
}
