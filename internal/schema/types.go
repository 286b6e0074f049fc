package schema

import "fmt"

// RelationKind is the kind of association a Relation describes
type RelationKind int

const (
	// BelongsTo is declared on the table holding the foreign key
	BelongsTo RelationKind = iota + 1
	// HasMany is the inverse of BelongsTo, declared on the referenced table
	HasMany
	// ManyToMany joins two tables through a pivot table
	ManyToMany
)

// String returns the wire name of the kind
func (k RelationKind) String() string {
	switch k {
	case BelongsTo:
		return "belongsTo"
	case HasMany:
		return "hasMany"
	case ManyToMany:
		return "manyToMany"
	default:
		return fmt.Sprintf("RelationKind(%d)", int(k))
	}
}

// ParseRelationKind converts a wire name into a RelationKind
func ParseRelationKind(s string) (RelationKind, error) {
	switch s {
	case "belongsTo":
		return BelongsTo, nil
	case "hasMany":
		return HasMany, nil
	case "manyToMany":
		return ManyToMany, nil
	default:
		return 0, fmt.Errorf("unknown relation kind: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (k RelationKind) MarshalText() ([]byte, error) {
	switch k {
	case BelongsTo, HasMany, ManyToMany:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("invalid relation kind: %d", int(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *RelationKind) UnmarshalText(text []byte) error {
	kind, err := ParseRelationKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Field represents a table column
type Field struct {
	Name          string  `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Type          string  `json:"type" yaml:"type" toml:"type" msgpack:"type"`
	Nullable      bool    `json:"nullable,omitempty" yaml:"nullable,omitempty" toml:"nullable,omitempty" msgpack:"nullable,omitempty"`
	PrimaryKey    bool    `json:"primary_key,omitempty" yaml:"primary_key,omitempty" toml:"primary_key,omitempty" msgpack:"primary_key,omitempty"`
	Unique        bool    `json:"unique,omitempty" yaml:"unique,omitempty" toml:"unique,omitempty" msgpack:"unique,omitempty"`
	AutoIncrement bool    `json:"auto_increment,omitempty" yaml:"auto_increment,omitempty" toml:"auto_increment,omitempty" msgpack:"auto_increment,omitempty"`
	DefaultValue  *string `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty" msgpack:"default,omitempty"`
	MaxLength     int     `json:"max_length,omitempty" yaml:"max_length,omitempty" toml:"max_length,omitempty" msgpack:"max_length,omitempty"`
}

// Index represents a database index
type Index struct {
	Name     string   `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Fields   []string `json:"fields" yaml:"fields" toml:"fields" msgpack:"fields"`
	IsUnique bool     `json:"unique,omitempty" yaml:"unique,omitempty" toml:"unique,omitempty" msgpack:"unique,omitempty"`
}

// ForeignKey represents a foreign key constraint. ForeignColumn is empty
// when the driver does not report the referenced column.
type ForeignKey struct {
	Name          string `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Column        string `json:"column" yaml:"column" toml:"column" msgpack:"column"`
	ForeignTable  string `json:"foreign_table" yaml:"foreign_table" toml:"foreign_table" msgpack:"foreign_table"`
	ForeignColumn string `json:"foreign_column,omitempty" yaml:"foreign_column,omitempty" toml:"foreign_column,omitempty" msgpack:"foreign_column,omitempty"`
}

// Pivot is one hop of a relation's join path: Table is the table joined to,
// Local is the column on the previous side, Foreign the column on Table.
type Pivot struct {
	Table   string `json:"table" yaml:"table" toml:"table" msgpack:"table"`
	Local   string `json:"local" yaml:"local" toml:"local" msgpack:"local"`
	Foreign string `json:"foreign" yaml:"foreign" toml:"foreign" msgpack:"foreign"`
}

// Relation is an association from the owning table to Target
type Relation struct {
	Target string       `json:"target" yaml:"target" toml:"target" msgpack:"target"`
	Kind   RelationKind `json:"kind" yaml:"kind" toml:"kind" msgpack:"kind"`
	Pivots []Pivot      `json:"pivots,omitempty" yaml:"pivots,omitempty" toml:"pivots,omitempty" msgpack:"pivots,omitempty"`
}

// Table represents a database table. Fields, indexes, foreign keys and
// relations are kept in discovery order and are unique by key (name, or
// target table for relations).
type Table struct {
	Name        string       `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Model       string       `json:"model,omitempty" yaml:"model,omitempty" toml:"model,omitempty" msgpack:"model,omitempty"`
	IsPivot     bool         `json:"pivot,omitempty" yaml:"pivot,omitempty" toml:"pivot,omitempty" msgpack:"pivot,omitempty"`
	Fields      []Field      `json:"fields,omitempty" yaml:"fields,omitempty" toml:"fields,omitempty" msgpack:"fields,omitempty"`
	Indexes     []Index      `json:"indexes,omitempty" yaml:"indexes,omitempty" toml:"indexes,omitempty" msgpack:"indexes,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty" toml:"foreign_keys,omitempty" msgpack:"foreign_keys,omitempty"`
	Relations   []Relation   `json:"relations,omitempty" yaml:"relations,omitempty" toml:"relations,omitempty" msgpack:"relations,omitempty"`
}

// Field returns the field with the given name
func (t *Table) Field(name string) (*Field, bool) {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// SetField replaces the field with the same name or appends it
func (t *Table) SetField(f Field) {
	if existing, ok := t.Field(f.Name); ok {
		*existing = f
		return
	}
	t.Fields = append(t.Fields, f)
}

// PrimaryKey returns the first field flagged as primary key. Composite keys
// are reported by their first column only.
func (t *Table) PrimaryKey() (*Field, bool) {
	for i := range t.Fields {
		if t.Fields[i].PrimaryKey {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// Index returns the index with the given name
func (t *Table) Index(name string) (*Index, bool) {
	for i := range t.Indexes {
		if t.Indexes[i].Name == name {
			return &t.Indexes[i], true
		}
	}
	return nil, false
}

// SetIndex replaces the index with the same name or appends it
func (t *Table) SetIndex(idx Index) {
	if existing, ok := t.Index(idx.Name); ok {
		*existing = idx
		return
	}
	t.Indexes = append(t.Indexes, idx)
}

// ForeignKey returns the foreign key constraint with the given name
func (t *Table) ForeignKey(name string) (*ForeignKey, bool) {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].Name == name {
			return &t.ForeignKeys[i], true
		}
	}
	return nil, false
}

// SetForeignKey replaces the constraint with the same name or appends it
func (t *Table) SetForeignKey(fk ForeignKey) {
	if existing, ok := t.ForeignKey(fk.Name); ok {
		*existing = fk
		return
	}
	t.ForeignKeys = append(t.ForeignKeys, fk)
}

// ForeignKeyTo returns the first foreign key referencing the given table
func (t *Table) ForeignKeyTo(table string) (*ForeignKey, bool) {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].ForeignTable == table {
			return &t.ForeignKeys[i], true
		}
	}
	return nil, false
}

// Relation returns the relation targeting the given table
func (t *Table) Relation(target string) (*Relation, bool) {
	for i := range t.Relations {
		if t.Relations[i].Target == target {
			return &t.Relations[i], true
		}
	}
	return nil, false
}

// SetRelation replaces the relation with the same target or appends it
func (t *Table) SetRelation(r Relation) {
	if existing, ok := t.Relation(r.Target); ok {
		*existing = r
		return
	}
	t.Relations = append(t.Relations, r)
}

// ClearRelations removes every relation from the table
func (t *Table) ClearRelations() {
	t.Relations = nil
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	c := &Table{
		Name:    t.Name,
		Model:   t.Model,
		IsPivot: t.IsPivot,
	}
	if t.Fields != nil {
		c.Fields = make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			if f.DefaultValue != nil {
				v := *f.DefaultValue
				f.DefaultValue = &v
			}
			c.Fields[i] = f
		}
	}
	if t.Indexes != nil {
		c.Indexes = make([]Index, len(t.Indexes))
		for i, idx := range t.Indexes {
			idx.Fields = append([]string(nil), idx.Fields...)
			c.Indexes[i] = idx
		}
	}
	if t.ForeignKeys != nil {
		c.ForeignKeys = append([]ForeignKey(nil), t.ForeignKeys...)
	}
	if t.Relations != nil {
		c.Relations = make([]Relation, len(t.Relations))
		for i, r := range t.Relations {
			if r.Pivots != nil {
				r.Pivots = append([]Pivot(nil), r.Pivots...)
			}
			c.Relations[i] = r
		}
	}
	return c
}
