package migrations_test

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-star/internal/testdb"
	"github.com/goliatone/go-star/migrations"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func applySQLite(ctx context.Context, t *testing.T, db *sql.DB, fsys fs.FS) {
	t.Helper()
	entries, err := fs.Glob(fsys, "sqlite/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	sort.Strings(entries)
	for _, entry := range entries {
		content, err := fs.ReadFile(fsys, entry)
		require.NoError(t, err)
		for _, stmt := range testdb.SplitStatements(string(content)) {
			_, err := db.ExecContext(ctx, stmt)
			require.NoError(t, err, "statement: %s", stmt)
		}
	}
}

func TestRegisteredMigrationsApplyToSQLite(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	registered := migrations.Filesystems()
	require.NotEmpty(t, registered)
	for _, fsys := range registered {
		applySQLite(ctx, t, db, fsys)
	}

	require.NoError(t, migrations.ValidateSchema(ctx, db, "sqlite3", nil))
}

func TestPostgresAndSQLiteSetsMatch(t *testing.T) {
	for _, fsys := range migrations.Filesystems() {
		pg, err := fs.Glob(fsys, "*.sql")
		require.NoError(t, err)
		lite, err := fs.Glob(fsys, "sqlite/*.sql")
		require.NoError(t, err)
		require.Len(t, lite, len(pg))
	}
}

func TestValidateSchemaReportsMissing(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	_, err := db.ExecContext(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT)`)
	require.NoError(t, err)

	err = migrations.ValidateSchema(ctx, db, "sqlite", []migrations.TableCheck{
		{Table: "users", Columns: []string{"id", "email", "external_id"}},
		{Table: "audit_logs", Columns: []string{"id"}},
	})
	var schemaErr *migrations.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, []string{"audit_logs"}, schemaErr.MissingTables)
	require.Equal(t, []string{"external_id"}, schemaErr.MissingColumns["users"])
	require.Contains(t, err.Error(), "users(external_id)")
}

func TestNormalizeDialect(t *testing.T) {
	got, err := migrations.NormalizeDialect("PGX")
	require.NoError(t, err)
	require.Equal(t, "postgres", got)

	_, err = migrations.NormalizeDialect("mysql")
	require.Error(t, err)
}
