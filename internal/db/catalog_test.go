package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/schemagraph/internal/introspect"
	"github.com/tordrt/schemagraph/internal/schema"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDriver Driver
		wantConn   string
		wantErr    bool
	}{
		{name: "postgres", url: "postgres://u:p@localhost/db", wantDriver: Postgres, wantConn: "postgres://u:p@localhost/db"},
		{name: "postgresql", url: "postgresql://localhost/db", wantDriver: Postgres, wantConn: "postgresql://localhost/db"},
		{name: "mysql", url: "mysql://u:p@tcp(localhost:3306)/shop", wantDriver: MySQL, wantConn: "u:p@tcp(localhost:3306)/shop"},
		{name: "sqlite", url: "sqlite://data/test.db", wantDriver: SQLite, wantConn: "data/test.db"},
		{name: "empty", url: "", wantErr: true},
		{name: "unknown scheme", url: "oracle://db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, conn, err := ParseDatabaseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantConn, conn)
		})
	}
}

func TestParseDatabaseName(t *testing.T) {
	name, err := ParseDatabaseName("u:p@tcp(localhost:3306)/shop?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "shop", name)

	_, err = ParseDatabaseName("u:p@tcp(localhost:3306)/")
	assert.Error(t, err)
}

func TestNormalizePostgresType(t *testing.T) {
	length := 64
	assert.Equal(t, "timestamptz", normalizePostgresType("timestamp with time zone", "timestamptz", nil))
	assert.Equal(t, "varchar(64)", normalizePostgresType("character varying", "varchar", &length))
	assert.Equal(t, "varchar", normalizePostgresType("character varying", "varchar", nil))
	assert.Equal(t, "char(64)", normalizePostgresType("character", "bpchar", &length))
	assert.Equal(t, "integer[]", normalizePostgresType("ARRAY", "_int4", nil))
	assert.Equal(t, "text[]", normalizePostgresType("ARRAY", "_text", nil))
	assert.Equal(t, "mood", normalizePostgresType("USER-DEFINED", "mood", nil))
	assert.Equal(t, "uuid", normalizePostgresType("uuid", "uuid", nil))
}

func TestMySQLCatalogFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM information_schema.columns c").WithArgs("shop", "users").WillReturnRows(
		sqlmock.NewRows([]string{"column_name", "column_type", "is_nullable", "column_default", "character_maximum_length", "column_key", "extra"}).
			AddRow("id", "int unsigned", "NO", nil, nil, "PRI", "auto_increment").
			AddRow("email", "varchar(255)", "NO", nil, int64(255), "UNI", "").
			AddRow("nickname", "varchar(64)", "YES", "anon", int64(64), "", ""),
	)

	fields, err := NewMySQLCatalog(db, "shop").Fields(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.True(t, fields[0].PrimaryKey)
	assert.True(t, fields[0].AutoIncrement)
	assert.True(t, fields[1].Unique)
	assert.Equal(t, 255, fields[1].MaxLength)
	assert.True(t, fields[2].Nullable)
	require.NotNil(t, fields[2].DefaultValue)
	assert.Equal(t, "anon", *fields[2].DefaultValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCatalogIndexesAndForeignKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM information_schema.statistics s").WithArgs("shop", "orders").WillReturnRows(
		sqlmock.NewRows([]string{"index_name", "is_unique", "column_names"}).
			AddRow("idx_user_created", 0, "user_id,created_at"),
	)
	mock.ExpectQuery("FROM information_schema.key_column_usage kcu").WithArgs("shop", "orders").WillReturnRows(
		sqlmock.NewRows([]string{"constraint_name", "column_name", "referenced_table_name", "referenced_column_name"}).
			AddRow("orders_user_fk", "user_id", "users", "id").
			AddRow("orders_store_fk", "store_id", "stores", nil),
	)

	catalog := NewMySQLCatalog(db, "shop")
	indexes, err := catalog.Indexes(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, []schema.Index{{Name: "idx_user_created", Fields: []string{"user_id", "created_at"}}}, indexes)

	fks, err := catalog.ForeignKeys(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, []schema.ForeignKey{
		{Name: "orders_user_fk", Column: "user_id", ForeignTable: "users", ForeignColumn: "id"},
		{Name: "orders_store_fk", Column: "store_id", ForeignTable: "stores"},
	}, fks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectSQLiteTable(mock sqlmock.Sqlmock, table string, fields *sqlmock.Rows, fks *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta(pragma("table_info", table))).WillReturnRows(fields)
	// once for unique columns, once for indexes
	mock.ExpectQuery(regexp.QuoteMeta(pragma("index_list", table))).WillReturnRows(indexListRows())
	mock.ExpectQuery(regexp.QuoteMeta(pragma("index_list", table))).WillReturnRows(indexListRows())
	mock.ExpectQuery(regexp.QuoteMeta(pragma("foreign_key_list", table))).WillReturnRows(fks)
}

func indexListRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"seq", "name", "unique", "origin", "partial"})
}

func indexInfoRows(columns ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"seqno", "cid", "name"})
	for i, c := range columns {
		rows.AddRow(i, i, c)
	}
	return rows
}

func tableInfoRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"})
}

func foreignKeyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "seq", "table", "from", "to", "on_update", "on_delete", "match"})
}

func TestSQLiteCatalogIntrospection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM sqlite_master").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow("groups").AddRow("groups_users").AddRow("users"),
	)
	expectSQLiteTable(mock, "groups",
		tableInfoRows().AddRow(0, "id", "INTEGER", 1, nil, 1).AddRow(1, "title", "TEXT", 0, nil, 0),
		foreignKeyRows(),
	)
	expectSQLiteTable(mock, "groups_users",
		tableInfoRows().AddRow(0, "group_id", "INTEGER", 1, nil, 1).AddRow(1, "user_id", "INTEGER", 1, nil, 2),
		foreignKeyRows().
			AddRow(0, 0, "users", "user_id", nil, "NO ACTION", "CASCADE", "NONE").
			AddRow(1, 0, "groups", "group_id", "id", "NO ACTION", "CASCADE", "NONE"),
	)
	mock.ExpectQuery(regexp.QuoteMeta(pragma("table_info", "users"))).WillReturnRows(
		tableInfoRows().AddRow(0, "id", "INTEGER", 1, nil, 1).AddRow(1, "email", "TEXT", 1, "''", 0).AddRow(2, "handle", "TEXT", 0, nil, 0),
	)
	mock.ExpectQuery(regexp.QuoteMeta(pragma("index_list", "users"))).WillReturnRows(
		indexListRows().AddRow(0, "idx_users_email", 1, "c", 0).AddRow(1, "sqlite_autoindex_users_1", 1, "u", 0),
	)
	mock.ExpectQuery(regexp.QuoteMeta(pragma("index_info", "idx_users_email"))).WillReturnRows(indexInfoRows("email"))
	mock.ExpectQuery(regexp.QuoteMeta(pragma("index_info", "sqlite_autoindex_users_1"))).WillReturnRows(indexInfoRows("handle"))
	mock.ExpectQuery(regexp.QuoteMeta(pragma("index_list", "users"))).WillReturnRows(
		indexListRows().AddRow(0, "idx_users_email", 1, "c", 0).AddRow(1, "sqlite_autoindex_users_1", 1, "u", 0),
	)
	mock.ExpectQuery(regexp.QuoteMeta(pragma("index_info", "idx_users_email"))).WillReturnRows(indexInfoRows("email"))
	mock.ExpectQuery(regexp.QuoteMeta(pragma("foreign_key_list", "users"))).WillReturnRows(foreignKeyRows())

	in := introspect.New(NewSQLiteCatalog(db), introspect.Config{Logger: logger.NewTestLogger()})
	s, err := in.Introspect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, in.Errors())
	assert.NoError(t, mock.ExpectationsWereMet())

	pivot, ok := s.Table("groups_users")
	require.True(t, ok)
	assert.True(t, pivot.IsPivot)
	assert.Empty(t, pivot.Relations)
	fk, ok := pivot.ForeignKey("groups_users_fk_0")
	require.True(t, ok)
	assert.Equal(t, "users", fk.ForeignTable)
	assert.Empty(t, fk.ForeignColumn)

	groups, _ := s.Table("groups")
	rel, ok := groups.Relation("users")
	require.True(t, ok)
	assert.Equal(t, schema.ManyToMany, rel.Kind)

	users, _ := s.Table("users")
	rel, ok = users.Relation("groups")
	require.True(t, ok)
	assert.Equal(t, schema.ManyToMany, rel.Kind)
	assert.Equal(t, []schema.Index{{Name: "idx_users_email", Fields: []string{"email"}, IsUnique: true}}, users.Indexes)
	email, _ := users.Field("email")
	assert.False(t, email.Nullable)
	assert.True(t, email.Unique)
	handle, _ := users.Field("handle")
	assert.True(t, handle.Unique)
	id, _ := users.Field("id")
	assert.True(t, id.AutoIncrement)
	assert.False(t, id.Unique)
	groupID, _ := pivot.Field("group_id")
	assert.False(t, groupID.AutoIncrement)
}

func TestSQLiteCatalogTableFailureIsNonFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM sqlite_master").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow("broken").AddRow("users"),
	)
	mock.ExpectQuery(regexp.QuoteMeta(pragma("table_info", "broken"))).WillReturnError(errors.New("database is locked"))
	expectSQLiteTable(mock, "users", tableInfoRows().AddRow(0, "id", "INTEGER", 1, nil, 1), foreignKeyRows())

	in := introspect.New(NewSQLiteCatalog(db), introspect.Config{Logger: logger.NewTestLogger()})
	s, err := in.Introspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, s.Names())
	errs := in.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}
