package introspect

import "github.com/tordrt/schemagraph/internal/schema"

// Convention is the naming behaviour pivot inference relies on
type Convention interface {
	IsPivotCandidate(table string) bool
	SplitPivot(table string) (left, right string, ok bool)
	ResolveForeignKeyField(fields []string, table string) (string, bool)
}

// PivotCandidates returns the table names that could name a pivot table
func PivotCandidates(names []string, conv Convention) []string {
	var candidates []string
	for _, name := range names {
		if conv.IsPivotCandidate(name) {
			candidates = append(candidates, name)
		}
	}
	return candidates
}

// pivotMatch holds the four columns a pivot commit needs
type pivotMatch struct {
	left, right     *schema.Table
	pivot           *schema.Table
	fkLeft, fkRight string
	pkLeft, pkRight string
}

// InferPivots detects many-to-many join tables among the candidates and
// rewrites relations for each one found. Every table must already be in s.
// All candidates are matched before any is committed, and a candidate with
// a matched pivot on either side is left as an ordinary table.
// It returns the names of the tables marked as pivot.
func InferPivots(s *schema.Schema, candidates []string, conv Convention) []string {
	var matches []*pivotMatch
	matched := make(map[string]bool)
	for _, name := range candidates {
		m, ok := matchPivot(s, name, conv)
		if !ok {
			continue
		}
		matches = append(matches, m)
		matched[name] = true
	}

	var pivots []string
	for _, m := range matches {
		if matched[m.left.Name] || matched[m.right.Name] {
			continue
		}
		commitPivot(m)
		pivots = append(pivots, m.pivot.Name)
	}
	return pivots
}

func matchPivot(s *schema.Schema, name string, conv Convention) (*pivotMatch, bool) {
	pivot, ok := s.Table(name)
	if !ok {
		return nil, false
	}
	leftName, rightName, ok := conv.SplitPivot(name)
	if !ok {
		return nil, false
	}
	left, ok := s.Table(leftName)
	if !ok {
		return nil, false
	}
	right, ok := s.Table(rightName)
	if !ok {
		return nil, false
	}
	if left.IsPivot || right.IsPivot {
		return nil, false
	}

	m := &pivotMatch{left: left, right: right, pivot: pivot}
	if m.fkLeft, ok = foreignKeyField(pivot, leftName, conv); !ok {
		return nil, false
	}
	if m.fkRight, ok = foreignKeyField(pivot, rightName, conv); !ok {
		return nil, false
	}
	if m.pkLeft, ok = primaryKeyField(left); !ok {
		return nil, false
	}
	if m.pkRight, ok = primaryKeyField(right); !ok {
		return nil, false
	}
	return m, true
}

// commitPivot marks the join table and synthesizes the mirrored relations.
// When left and right are the same table the second relation replaces the
// first.
func commitPivot(m *pivotMatch) {
	m.pivot.IsPivot = true
	m.pivot.ClearRelations()

	m.left.SetRelation(schema.Relation{
		Target: m.right.Name,
		Kind:   schema.ManyToMany,
		Pivots: []schema.Pivot{
			{Table: m.pivot.Name, Local: m.pkLeft, Foreign: m.fkLeft},
			{Table: m.right.Name, Local: m.fkRight, Foreign: m.pkRight},
		},
	})
	m.right.SetRelation(schema.Relation{
		Target: m.left.Name,
		Kind:   schema.ManyToMany,
		Pivots: []schema.Pivot{
			{Table: m.pivot.Name, Local: m.pkRight, Foreign: m.fkRight},
			{Table: m.left.Name, Local: m.fkLeft, Foreign: m.pkLeft},
		},
	})
}

// foreignKeyField finds the column of the pivot table referencing target:
// an explicit constraint first, then the naming convention.
func foreignKeyField(pivot *schema.Table, target string, conv Convention) (string, bool) {
	if fk, ok := pivot.ForeignKeyTo(target); ok && fk.Column != "" {
		return fk.Column, true
	}
	return conv.ResolveForeignKeyField(conventionFields(pivot), target)
}

// conventionFields lists the columns naming-based resolution may pick. A
// single-column primary key is excluded; members of a composite key are not,
// since join tables usually key on both foreign keys.
func conventionFields(t *schema.Table) []string {
	keys := 0
	for _, f := range t.Fields {
		if f.PrimaryKey {
			keys++
		}
	}
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.PrimaryKey && keys == 1 {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

func primaryKeyField(t *schema.Table) (string, bool) {
	pk, ok := t.PrimaryKey()
	if !ok {
		return "", false
	}
	return pk.Name, true
}
