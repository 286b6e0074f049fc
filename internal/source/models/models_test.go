package models

import (
	"context"
	"testing"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/schemagraph/internal/schema"
)

type User struct {
	ID        int64     `db:"id,pk,auto"`
	Email     string    `db:"email,unique,type=varchar(255)"`
	GroupID   *int64    `db:"group_id,fk=groups.id"`
	CreatedAt time.Time `db:",default=now()"`
	DeletedAt *time.Time
	Avatar    []byte
	Secret    string `db:"-"`
	internal  string
}

type Group struct {
	ID    int64 `db:"id,pk"`
	Title string
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"ID":         "id",
		"UserID":     "user_id",
		"CreatedAt":  "created_at",
		"HTTPServer": "http_server",
		"name":       "name",
	}
	for in, want := range tests {
		assert.Equal(t, want, SnakeCase(in), in)
	}
}

func TestRegister(t *testing.T) {
	src := New(Config{Logger: logger.NewTestLogger()}).
		Register("users", &User{}).
		Register("groups", Group{})

	s, err := src.Draft(context.Background())
	require.NoError(t, err)
	assert.Empty(t, src.Errors())
	assert.Equal(t, []string{"users", "groups"}, s.Names())

	users, _ := s.Table("users")
	assert.Equal(t, "models.User", users.Model)

	var names []string
	for _, f := range users.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "email", "group_id", "created_at", "deleted_at", "avatar"}, names)

	id, _ := users.Field("id")
	assert.Equal(t, schema.Field{Name: "id", Type: "integer", PrimaryKey: true, AutoIncrement: true}, id)
	email, _ := users.Field("email")
	assert.Equal(t, "varchar(255)", email.Type)
	assert.True(t, email.Unique)
	group, _ := users.Field("group_id")
	assert.True(t, group.Nullable)
	created, _ := users.Field("created_at")
	assert.Equal(t, "timestamp", created.Type)
	require.NotNil(t, created.DefaultValue)
	assert.Equal(t, "now()", *created.DefaultValue)
	deleted, _ := users.Field("deleted_at")
	assert.True(t, deleted.Nullable)
	avatar, _ := users.Field("avatar")
	assert.Equal(t, "blob", avatar.Type)

	rel, ok := users.Relation("groups")
	require.True(t, ok)
	assert.Equal(t, schema.BelongsTo, rel.Kind)
	groups, _ := s.Table("groups")
	rel, ok = groups.Relation("users")
	require.True(t, ok)
	assert.Equal(t, schema.HasMany, rel.Kind)
}

func TestBindOverlaysModel(t *testing.T) {
	src := New(Config{Logger: logger.NewTestLogger()}).
		Register("groups", Group{}).
		Bind("groups", "app.Group").
		Bind("audit_log", "app.AuditEntry")

	s, err := src.Draft(context.Background())
	require.NoError(t, err)
	groups, _ := s.Table("groups")
	assert.Equal(t, "app.Group", groups.Model)
	assert.Len(t, groups.Fields, 2)

	audit, ok := s.Table("audit_log")
	require.True(t, ok)
	assert.Equal(t, "app.AuditEntry", audit.Model)
	assert.Empty(t, audit.Fields)
}

func TestDraftDoesNotShareState(t *testing.T) {
	src := New(Config{Logger: logger.NewTestLogger()}).Register("groups", Group{})
	first, err := src.Draft(context.Background())
	require.NoError(t, err)
	g, _ := first.Table("groups")
	g.Model = "changed"

	second, err := src.Draft(context.Background())
	require.NoError(t, err)
	g, _ = second.Table("groups")
	assert.Equal(t, "models.Group", g.Model)
}

func TestRegisterInvalid(t *testing.T) {
	type badTag struct {
		ID int `db:"id,primary"`
	}
	type badFK struct {
		OwnerID int `db:"owner_id,fk=.id"`
	}

	src := New(Config{Logger: logger.NewTestLogger()}).
		Register("numbers", 42).
		Register("bad_tag", badTag{}).
		Register("bad_fk", badFK{}).
		Register("nil", nil)

	s, err := src.Draft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Len(t, src.Errors(), 4)
}
