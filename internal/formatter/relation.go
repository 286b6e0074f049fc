package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

// FormatRelation renders a relation and its join path on one line
func FormatRelation(rel schema.Relation) string {
	switch rel.Kind {
	case schema.BelongsTo:
		if len(rel.Pivots) == 1 {
			hop := rel.Pivots[0]
			return fmt.Sprintf("%s → %s.%s (%s)", hop.Local, hop.Table, hop.Foreign, rel.Kind)
		}
	case schema.HasMany:
		if len(rel.Pivots) == 1 {
			hop := rel.Pivots[0]
			return fmt.Sprintf("%s ← %s.%s (%s)", hop.Local, hop.Table, hop.Foreign, rel.Kind)
		}
	case schema.ManyToMany:
		if len(rel.Pivots) == 2 {
			through, target := rel.Pivots[0], rel.Pivots[1]
			return fmt.Sprintf("%s ← %s.%s, %s.%s → %s.%s (%s)",
				through.Local, through.Table, through.Foreign,
				through.Table, target.Local, target.Table, target.Foreign,
				rel.Kind)
		}
	}
	return fmt.Sprintf("→ %s (%s)", rel.Target, rel.Kind)
}

// IncomingRelation is a relation of another table that targets this one
type IncomingRelation struct {
	Source   string
	Relation schema.Relation
}

// findIncomingRelations lists the relations of other tables targeting name
func findIncomingRelations(name string, c schema.TableContainer) []IncomingRelation {
	var incoming []IncomingRelation
	for _, other := range c.Names() {
		if other == name {
			continue
		}
		t, ok := c.Table(other)
		if !ok {
			continue
		}
		for _, rel := range t.Relations {
			if rel.Target == name {
				incoming = append(incoming, IncomingRelation{Source: other, Relation: rel})
			}
		}
	}
	return incoming
}

// sortedTables resolves every table of a container in name order
func sortedTables(c schema.TableContainer) []*schema.Table {
	names := c.Names()
	sort.Strings(names)
	tables := make([]*schema.Table, 0, len(names))
	for _, name := range names {
		if t, ok := c.Table(name); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

func relationTargets(t *schema.Table) []string {
	targets := make([]string, 0, len(t.Relations))
	for _, rel := range t.Relations {
		targets = append(targets, rel.Target)
	}
	return targets
}

func primaryKeys(t *schema.Table) []string {
	var keys []string
	for _, f := range t.Fields {
		if f.PrimaryKey {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

func fieldConstraints(f schema.Field) []string {
	var constraints []string
	if f.PrimaryKey {
		constraints = append(constraints, "PK")
	}
	if f.AutoIncrement {
		constraints = append(constraints, "AUTO")
	}
	if f.Unique {
		constraints = append(constraints, "UNIQUE")
	}
	if !f.Nullable {
		constraints = append(constraints, "NOT NULL")
	}
	if f.DefaultValue != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", *f.DefaultValue))
	}
	return constraints
}

func tableLabels(t *schema.Table) string {
	var labels []string
	if t.IsPivot {
		labels = append(labels, "pivot")
	}
	if t.Model != "" {
		labels = append(labels, "model: "+t.Model)
	}
	if len(labels) == 0 {
		return ""
	}
	return " [" + strings.Join(labels, ", ") + "]"
}
