//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/schemagraph"
	"github.com/tordrt/schemagraph/internal/schema"
)

var expectedTables = []string{"users", "products", "orders", "order_items"}

// databaseURL returns the URL from the environment or the default
func databaseURL(env, fallback string) string {
	if url := os.Getenv(env); url != "" {
		return url
	}
	return fallback
}

// draft introspects the database or fails the test
func draft(t *testing.T, url string, opts *schemagraph.Options) *schema.Schema {
	t.Helper()
	s, err := schemagraph.DraftDatabase(context.Background(), url, opts, logger.NewTestLogger())
	require.NoError(t, err)
	return s
}

// verifyTablesExist checks that exactly the expected tables are present
func verifyTablesExist(t *testing.T, s *schema.Schema, want []string) {
	t.Helper()
	assert.ElementsMatch(t, want, s.Names())
}

// findTable returns a table or fails the test
func findTable(t *testing.T, s *schema.Schema, name string) *schema.Table {
	t.Helper()
	table, ok := s.Table(name)
	require.True(t, ok, "table %s not found", name)
	return table
}

// verifyFields checks that expected fields exist in a table
func verifyFields(t *testing.T, table *schema.Table, want []string) {
	t.Helper()
	for _, name := range want {
		_, ok := table.Field(name)
		assert.True(t, ok, "field %s not found in %s", name, table.Name)
	}
}

// verifyPrimaryKey checks the primary key fields of a table
func verifyPrimaryKey(t *testing.T, table *schema.Table, want []string) {
	t.Helper()
	var got []string
	for _, f := range table.Fields {
		if f.PrimaryKey {
			got = append(got, f.Name)
		}
	}
	assert.Equal(t, want, got)
}

// verifyUnique checks that a field has a unique constraint
func verifyUnique(t *testing.T, table *schema.Table, name string) {
	t.Helper()
	f, ok := table.Field(name)
	require.True(t, ok, "field %s not found in %s", name, table.Name)
	assert.True(t, f.Unique, "expected %s.%s to be unique", table.Name, name)
}

// verifyBelongsTo checks the direct relation of a foreign key and its inverse
func verifyBelongsTo(t *testing.T, s *schema.Schema, owner, column, target string) {
	t.Helper()
	rel, ok := findTable(t, s, owner).Relation(target)
	require.True(t, ok, "expected relation %s -> %s", owner, target)
	assert.Equal(t, schema.BelongsTo, rel.Kind)
	require.Len(t, rel.Pivots, 1)
	assert.Equal(t, column, rel.Pivots[0].Local)

	inverse, ok := findTable(t, s, target).Relation(owner)
	require.True(t, ok, "expected inverse relation %s -> %s", target, owner)
	assert.Equal(t, schema.HasMany, inverse.Kind)
}

// verifyIndex checks that an index exists with the expected fields
func verifyIndex(t *testing.T, table *schema.Table, name string, want []string) {
	t.Helper()
	idx, ok := table.Index(name)
	require.True(t, ok, "index %s not found in %s", name, table.Name)
	assert.Equal(t, want, idx.Fields)
}
