package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/schemagraph/internal/schema"
)

const usersYAML = `tables:
  - name: users
    model: app.User
    fields:
      - name: id
        type: integer
        primary_key: true
      - name: email
        type: text
`

const groupsJSON = `{"tables": [
  {"name": "groups", "fields": [{"name": "id", "type": "integer", "primary_key": true}]}
]}`

const pivotTOML = `[[tables]]
name = "groups_users"

[[tables.fields]]
name = "group_id"
type = "integer"

[[tables.fields]]
name = "user_id"
type = "integer"
`

const overrideYAML = `tables:
  - name: users
    fields:
      - name: email
        type: varchar(255)
        unique: true
  - name: posts
    fields:
      - name: id
        type: integer
        primary_key: true
      - name: user_id
        type: integer
    foreign_keys:
      - name: posts_user_fk
        column: user_id
        foreign_table: users
        foreign_column: id
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func newSource(t *testing.T, dir string) *Source {
	t.Helper()
	src, err := New(Config{Logger: logger.NewTestLogger(), Dir: dir})
	require.NoError(t, err)
	return src
}

func TestDraftFromDefinitionFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a_users.yaml":    usersYAML,
		"b_groups.json":   groupsJSON,
		"c_pivot.toml":    pivotTOML,
		"d_override.yml":  overrideYAML,
		"README.md":       "# not a definition",
		"e_cache.msgpack": "\x80",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0755))

	src := newSource(t, dir)
	s, err := src.Draft(context.Background())
	require.NoError(t, err)
	assert.Empty(t, src.Errors())

	assert.Equal(t, []string{"users", "groups", "groups_users", "posts"}, s.Names())

	users, _ := s.Table("users")
	assert.Equal(t, "app.User", users.Model)
	email, ok := users.Field("email")
	require.True(t, ok)
	assert.Equal(t, "varchar(255)", email.Type)
	assert.True(t, email.Unique)
	_, ok = users.Field("id")
	assert.True(t, ok)

	pivot, _ := s.Table("groups_users")
	assert.True(t, pivot.IsPivot)

	rel, ok := users.Relation("groups")
	require.True(t, ok)
	assert.Equal(t, schema.ManyToMany, rel.Kind)
	assert.Equal(t, []schema.Pivot{
		{Table: "groups_users", Local: "id", Foreign: "user_id"},
		{Table: "groups", Local: "group_id", Foreign: "id"},
	}, rel.Pivots)

	posts, _ := s.Table("posts")
	rel, ok = posts.Relation("users")
	require.True(t, ok)
	assert.Equal(t, schema.BelongsTo, rel.Kind)

	rel, ok = users.Relation("posts")
	require.True(t, ok)
	assert.Equal(t, schema.HasMany, rel.Kind)
	assert.Equal(t, []schema.Pivot{{Table: "posts", Local: "id", Foreign: "user_id"}}, rel.Pivots)
}

func TestInvalidFilesAreSkipped(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"good.yaml":         usersYAML,
		"missing_type.json": `{"tables": [{"name": "bad", "fields": [{"name": "id"}]}]}`,
		"unknown_key.yaml":  "tables:\n  - name: bad\n    colour: red\n",
		"bad_kind.json":     `{"tables": [{"name": "bad", "relations": [{"target": "users", "kind": "sideways"}]}]}`,
		"broken.toml":       "[[tables]\nname =",
	})

	src := newSource(t, dir)
	s, err := src.Draft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, s.Names())

	errs := src.Errors()
	assert.Len(t, errs, 4)
	assert.Empty(t, src.Errors())
}

func TestMissingDirectory(t *testing.T) {
	src := newSource(t, filepath.Join(t.TempDir(), "absent"))
	_, err := src.Draft(context.Background())
	assert.Error(t, err)

	_, err = New(Config{Logger: logger.NewTestLogger()})
	assert.Error(t, err)
}
