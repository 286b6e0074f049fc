// Package naming implements the table and column naming conventions used to
// infer relations that are not declared as foreign keys.
package naming

import (
	"regexp"
	"strings"
)

const (
	// DefaultSeparator joins the two table names of a pivot table
	DefaultSeparator = "_"
	// DefaultForeignKeySuffix ends the name of a foreign key column
	DefaultForeignKeySuffix = "_id"
)

// Convention describes how pivot tables and foreign key columns are named
type Convention struct {
	separator string
	suffix    string
	fkPattern *regexp.Regexp
}

// New creates a convention. Empty arguments fall back to the defaults.
func New(separator, foreignKeySuffix string) *Convention {
	if separator == "" {
		separator = DefaultSeparator
	}
	if foreignKeySuffix == "" {
		foreignKeySuffix = DefaultForeignKeySuffix
	}
	return &Convention{
		separator: separator,
		suffix:    foreignKeySuffix,
		fkPattern: regexp.MustCompile("^.+" + regexp.QuoteMeta(foreignKeySuffix) + "$"),
	}
}

// Default returns the underscore / _id convention
func Default() *Convention {
	return New(DefaultSeparator, DefaultForeignKeySuffix)
}

// Separator returns the pivot separator
func (c *Convention) Separator() string {
	return c.separator
}

// IsPivotCandidate reports whether a table name could name a pivot table
func (c *Convention) IsPivotCandidate(table string) bool {
	_, _, ok := c.SplitPivot(table)
	return ok
}

// SplitPivot splits a table name at the first separator. There is no retry
// with later split points: users_groups_extra yields users and groups_extra.
func (c *Convention) SplitPivot(table string) (left, right string, ok bool) {
	left, right, found := strings.Cut(table, c.separator)
	if !found || left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}

// IsForeignKeyField reports whether a column name follows the foreign key
// naming convention
func (c *Convention) IsForeignKeyField(column string) bool {
	return c.fkPattern.MatchString(column)
}

// ForeignKeyCandidates returns, in order of preference, the column names a
// foreign key referencing the given table is expected to have
func (c *Convention) ForeignKeyCandidates(table string) []string {
	singular := Singular(table)
	if singular == table {
		return []string{table + c.suffix}
	}
	return []string{singular + c.suffix, table + c.suffix}
}

// ResolveForeignKeyField returns the first candidate column for the given
// table found among fields
func (c *Convention) ResolveForeignKeyField(fields []string, table string) (string, bool) {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		if c.IsForeignKeyField(f) {
			set[f] = true
		}
	}
	for _, candidate := range c.ForeignKeyCandidates(table) {
		if set[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// Singular makes a best effort English singular of a table name
func Singular(name string) string {
	switch {
	case strings.HasSuffix(name, "ies") && len(name) > 3:
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "ses"), strings.HasSuffix(name, "xes"), strings.HasSuffix(name, "ches"), strings.HasSuffix(name, "shes"):
		return name[:len(name)-2]
	case strings.HasSuffix(name, "ss"):
		return name
	case strings.HasSuffix(name, "s") && len(name) > 1:
		return name[:len(name)-1]
	default:
		return name
	}
}
