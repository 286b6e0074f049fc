package introspect

import "github.com/tordrt/schemagraph/internal/schema"

// AttachDirectRelations creates a belongsTo relation for every foreign key of
// the table. A second constraint to an already related table keeps the
// first relation.
func AttachDirectRelations(table *schema.Table) {
	for _, fk := range table.ForeignKeys {
		if fk.ForeignTable == "" {
			continue
		}
		if _, exists := table.Relation(fk.ForeignTable); exists {
			continue
		}
		rel := schema.Relation{Target: fk.ForeignTable, Kind: schema.BelongsTo}
		if fk.Column != "" && fk.ForeignColumn != "" {
			rel.Pivots = []schema.Pivot{{Table: fk.ForeignTable, Local: fk.Column, Foreign: fk.ForeignColumn}}
		}
		table.Relations = append(table.Relations, rel)
	}
}

// InferInverse adds a hasMany relation on the referenced table for every
// belongsTo relation, unless the referenced table already has a relation
// keyed by the owning table. Pivot tables carry no relations and produce
// no inverses.
func InferInverse(s *schema.Schema) {
	for _, owner := range s.Tables() {
		if owner.IsPivot {
			continue
		}
		for _, rel := range owner.Relations {
			if rel.Kind != schema.BelongsTo || rel.Target == owner.Name {
				continue
			}
			target, ok := s.Table(rel.Target)
			if !ok || target.IsPivot {
				continue
			}
			if _, exists := target.Relation(owner.Name); exists {
				continue
			}
			inverse := schema.Relation{Target: owner.Name, Kind: schema.HasMany}
			if len(rel.Pivots) == 1 {
				hop := rel.Pivots[0]
				inverse.Pivots = []schema.Pivot{{Table: owner.Name, Local: hop.Foreign, Foreign: hop.Local}}
			}
			target.Relations = append(target.Relations, inverse)
		}
	}
}

// Infer runs relation inference over an already assembled schema: direct
// relations from declared foreign keys, pivot detection over every table
// name, then inverse relations. Used for sources that do not come from a
// live catalog.
func Infer(s *schema.Schema, conv Convention) []string {
	for _, t := range s.Tables() {
		if !t.IsPivot {
			AttachDirectRelations(t)
		}
	}
	pivots := InferPivots(s, PivotCandidates(s.Names(), conv), conv)
	InferInverse(s)
	return pivots
}
