package star

import "embed"

// MigrationsFS contains SQL migrations for both PostgreSQL and SQLite.
//
// Root files (data/sql/migrations/*.sql) target PostgreSQL and the SQLite
// variants live in data/sql/migrations/sqlite. go-persistence-bun picks the
// set matching the active dialect:
//
//	migrationsFS, _ := fs.Sub(star.MigrationsFS, "data/sql/migrations")
//	client.RegisterDialectMigrations(
//	    migrationsFS,
//	    persistence.WithDialectSourceLabel("."),
//	    persistence.WithValidationTargets("postgres", "sqlite"),
//	)
//
//go:embed data/sql/migrations
var MigrationsFS embed.FS
