//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/schemagraph"
)

func sqliteURL() string {
	return "sqlite://" + databaseURL("SQLITE_TEST_PATH", "../../test.db")
}

func TestSQLiteExtraction(t *testing.T) {
	s := draft(t, sqliteURL(), nil)
	verifyTablesExist(t, s, expectedTables)

	users := findTable(t, s, "users")
	verifyPrimaryKey(t, users, []string{"id"})
	verifyFields(t, users, []string{"id", "username", "email", "status", "created_at"})
	verifyUnique(t, users, "username")

	verifyBelongsTo(t, s, "orders", "user_id", "users")
	verifyIndex(t, findTable(t, s, "products"), "idx_category", []string{"category"})
}

func TestSQLiteSpecificTables(t *testing.T) {
	s := draft(t, sqliteURL(), &schemagraph.Options{Tables: []string{"users", "products"}})
	assert.Equal(t, []string{"users", "products"}, s.Names())
}

func TestSQLiteExclusion(t *testing.T) {
	s := draft(t, sqliteURL(), &schemagraph.Options{ExcludeTables: []string{"orders", "order_items"}})
	assert.ElementsMatch(t, []string{"users", "products"}, s.Names())
}

func TestSQLiteDraftAndFormat(t *testing.T) {
	var buf bytes.Buffer
	err := schemagraph.DraftAndFormat(context.Background(), sqliteURL(), &schemagraph.Options{Tables: []string{"users"}}, &schemagraph.OutputOptions{Writer: &buf}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "## users")
	assert.Contains(t, buf.String(), "username")
}
