package schema

// Merge combines two containers into a new Schema; neither input is
// modified. Tables only in addition are appended in addition's order. For a
// table present in both, fields, indexes, foreign keys and relations are
// merged by key: the addition's value wins, keys unique to base are kept.
// A non-empty Model in addition overrides base, and a table flagged as pivot
// by either side stays a pivot with no relations.
func Merge(base, addition TableContainer) *Schema {
	result := New()
	if base != nil {
		for _, name := range base.Names() {
			if t, ok := base.Table(name); ok {
				result.Add(t.Clone())
			}
		}
	}
	if addition == nil {
		return result
	}
	for _, name := range addition.Names() {
		t, ok := addition.Table(name)
		if !ok {
			continue
		}
		existing, ok := result.Table(name)
		if !ok {
			result.Add(t.Clone())
			continue
		}
		mergeTable(existing, t.Clone())
	}
	return result
}

// MergeAll folds containers left to right; later containers take precedence
func MergeAll(containers ...TableContainer) *Schema {
	result := New()
	for _, c := range containers {
		result = Merge(result, c)
	}
	return result
}

func mergeTable(dst, src *Table) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	dst.IsPivot = dst.IsPivot || src.IsPivot
	for _, f := range src.Fields {
		dst.SetField(f)
	}
	for _, idx := range src.Indexes {
		dst.SetIndex(idx)
	}
	for _, fk := range src.ForeignKeys {
		dst.SetForeignKey(fk)
	}
	for _, r := range src.Relations {
		dst.SetRelation(r)
	}
	if dst.IsPivot {
		dst.ClearRelations()
	}
}
