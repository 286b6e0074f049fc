package schemagraph

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/schemagraph/internal/config"
	"github.com/tordrt/schemagraph/internal/pipeline"
	"github.com/tordrt/schemagraph/internal/schema"
)

const fixtureDDL = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT
);
CREATE TABLE groups (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE groups_users (
	group_id INTEGER NOT NULL REFERENCES groups(id),
	user_id INTEGER NOT NULL REFERENCES users(id),
	PRIMARY KEY (group_id, user_id)
);
CREATE TABLE posts (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	title TEXT NOT NULL DEFAULT 'untitled'
);
CREATE INDEX idx_posts_user ON posts(user_id);
CREATE TABLE migrations (
	version INTEGER PRIMARY KEY
);
`

// createFixture writes a SQLite database and returns its URL
func createFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(fixtureDDL)
	require.NoError(t, err)
	return "sqlite://" + path
}

func testConfig(url string) *config.Config {
	return &config.Config{
		Group:    "default",
		Database: config.DatabaseConfig{URL: url, Exclude: []string{"migrations"}},
		Handlers: config.HandlersConfig{
			Draft:   []string{HandlerDatabase},
			Archive: []string{HandlerCache},
			Read:    HandlerCache,
		},
		Automation: config.AutomationConfig{AutoDraft: true},
		Naming:     config.NamingConfig{Separator: "_", ForeignKeySuffix: "_id"},
	}
}

func TestDraftDatabase(t *testing.T) {
	url := createFixture(t)
	s, err := DraftDatabase(context.Background(), url, &Options{ExcludeTables: []string{"migrations"}}, logger.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"groups", "groups_users", "posts", "users"}, s.Names())

	pivot, ok := s.Table("groups_users")
	require.True(t, ok)
	assert.True(t, pivot.IsPivot)
	assert.Empty(t, pivot.Relations)

	users, ok := s.Table("users")
	require.True(t, ok)
	rel, ok := users.Relation("groups")
	require.True(t, ok)
	assert.Equal(t, schema.ManyToMany, rel.Kind)
	rel, ok = users.Relation("posts")
	require.True(t, ok)
	assert.Equal(t, schema.HasMany, rel.Kind)

	posts, ok := s.Table("posts")
	require.True(t, ok)
	rel, ok = posts.Relation("users")
	require.True(t, ok)
	assert.Equal(t, []schema.Pivot{{Table: "users", Local: "user_id", Foreign: "id"}}, rel.Pivots)
	idx, ok := posts.Index("idx_posts_user")
	require.True(t, ok)
	assert.Equal(t, []string{"user_id"}, idx.Fields)
}

func TestDraftDatabaseSpecificTables(t *testing.T) {
	url := createFixture(t)
	s, err := DraftDatabase(context.Background(), url, &Options{Tables: []string{"users", "posts"}}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "posts"}, s.Names())
}

func TestDraftDatabaseInvalidURL(t *testing.T) {
	for _, url := range []string{"", "invalid://test.db"} {
		_, err := DraftDatabase(context.Background(), url, nil, logger.NewTestLogger())
		assert.Error(t, err, url)
	}
}

func TestFormatSchema(t *testing.T) {
	s := schema.New(&schema.Table{
		Name:   "users",
		Fields: []schema.Field{{Name: "id", Type: "integer", PrimaryKey: true}, {Name: "username", Type: "text"}},
	})

	var buf bytes.Buffer
	require.NoError(t, FormatSchema(s, &OutputOptions{Writer: &buf}))
	assert.Contains(t, buf.String(), "## users")
	assert.Contains(t, buf.String(), "- **username:** text, NOT NULL")

	buf.Reset()
	require.NoError(t, FormatSchema(s, &OutputOptions{Writer: &buf, Format: "text"}))
	assert.Equal(t, "TABLE users (PK: id)\n  id: integer NOT NULL\n  username: text NOT NULL\n", buf.String())

	dir := t.TempDir()
	require.NoError(t, FormatSchema(s, &OutputOptions{OutputDir: dir}))
	content, err := os.ReadFile(filepath.Join(dir, "users.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "username")

	assert.Error(t, FormatSchema(s, &OutputOptions{Writer: &buf, Format: "html"}))
}

func TestDraftAndFormat(t *testing.T) {
	url := createFixture(t)
	var buf bytes.Buffer
	err := DraftAndFormat(context.Background(), url, &Options{ExcludeTables: []string{"migrations", "posts"}}, &OutputOptions{Writer: &buf, Format: "text"}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "TABLE groups_users (PK: group_id, user_id) [pivot]")
	assert.NotContains(t, buf.String(), "TABLE posts")
	assert.NotContains(t, buf.String(), "migrations")
}

func TestSessionDraftArchiveRead(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(createFixture(t))
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	cfg.Automation.AutoArchive = true

	session, err := Open(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	drafted, err := session.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, session.Errors())
	require.NoError(t, session.Close())

	// a second session with a dead database only succeeds through the archive
	cfg.Database.URL = "sqlite://" + filepath.Join(t.TempDir(), "missing", "app.db")
	cfg.Automation = config.AutomationConfig{AutoRead: true}
	session, err = Open(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	defer session.Close()

	read, err := session.Get(ctx)
	require.NoError(t, err)
	_, ok := read.(*schema.Lazy)
	assert.True(t, ok)
	assert.Equal(t, drafted.Names(), read.Names())
	for _, name := range drafted.Names() {
		want, _ := drafted.Table(name)
		got, ok := read.Table(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got)
	}
	assert.Empty(t, session.Errors())
}

func TestSessionFileArchive(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(createFixture(t))
	cfg.Archive.Path = filepath.Join(t.TempDir(), "schema.yaml")
	cfg.Handlers.Archive = []string{HandlerCache, HandlerFile}
	cfg.Handlers.Read = HandlerFile

	session, err := Open(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	defer session.Close()

	session.Draft(ctx)
	ok, err := session.Archive(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = os.Stat(cfg.Archive.Path)
	require.NoError(t, err)

	cache, err := session.Registry().Reader(HandlerCache)
	require.NoError(t, err)
	session.Reset()
	session.Read(ctx, cache)
	require.NotNil(t, session.Current())
	assert.Contains(t, session.Current().Names(), "groups_users")
	assert.Empty(t, session.Errors())
}

func TestSessionModels(t *testing.T) {
	type Post struct {
		ID     int64  `db:"id,pk,auto"`
		UserID int64  `db:"user_id,fk=users.id"`
		Title  string `db:"title"`
	}
	type User struct {
		ID    int64  `db:"id,pk,auto"`
		Email string `db:"email,unique"`
	}

	cfg := testConfig("")
	cfg.Handlers.Draft = []string{HandlerModels}
	session, err := Open(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	defer session.Close()

	session.Models().Register("users", User{}).Register("posts", Post{})
	tables, err := session.Get(context.Background())
	require.NoError(t, err)

	users, ok := tables.Table("users")
	require.True(t, ok)
	assert.Equal(t, "schemagraph.User", users.Model)
	rel, ok := users.Relation("posts")
	require.True(t, ok)
	assert.Equal(t, schema.HasMany, rel.Kind)
}

func TestSessionNoSchema(t *testing.T) {
	cfg := testConfig("invalid://nowhere")
	session, err := Open(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Get(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrNoSchemaAvailable)
	assert.Len(t, session.Errors(), 1)
}

func TestOpenUnknownHandler(t *testing.T) {
	cfg := testConfig("")
	cfg.Handlers.Read = "redis"
	_, err := Open(cfg, logger.NewTestLogger())
	assert.ErrorIs(t, err, pipeline.ErrUnknownHandler)

	cfg = testConfig("")
	cfg.Handlers.Archive = []string{HandlerFile}
	_, err = Open(cfg, logger.NewTestLogger())
	assert.Error(t, err, "file archive requires a path")
}
