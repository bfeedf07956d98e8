package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// TableCheck names a table and the columns the repositories read or write.
type TableCheck struct {
	Table   string
	Columns []string
}

// DefaultTableChecks mirrors the columns the Bun models map.
var DefaultTableChecks = []TableCheck{
	{Table: "users", Columns: []string{"id", "external_id", "email", "display_name", "is_admin", "is_active", "created_at", "updated_at"}},
	{Table: "competencies", Columns: []string{"id", "name", "description", "category", "level", "expectations", "created_at", "updated_at"}},
	{Table: "star_stories", Columns: []string{"id", "user_id", "competency_id", "title", "situation", "task", "action", "result", "ai_feedback", "created_at", "updated_at"}},
	{Table: "case_studies", Columns: []string{"id", "user_id", "title", "description", "image_path", "ai_analysis", "created_at", "updated_at"}},
	{Table: "audit_logs", Columns: []string{"id", "user_id", "action", "entity_type", "entity_id", "details", "data", "created_at"}},
}

// Querier is satisfied by *sql.DB, *sql.Tx and *bun.DB.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SchemaError lists what a migrated database is missing.
type SchemaError struct {
	MissingTables  []string
	MissingColumns map[string][]string
}

func (e *SchemaError) Error() string {
	if e == nil {
		return ""
	}
	var parts []string
	if len(e.MissingTables) > 0 {
		parts = append(parts, "missing tables: "+strings.Join(e.MissingTables, ", "))
	}
	if len(e.MissingColumns) > 0 {
		tables := make([]string, 0, len(e.MissingColumns))
		for table := range e.MissingColumns {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		cols := make([]string, 0, len(tables))
		for _, table := range tables {
			missing := append([]string(nil), e.MissingColumns[table]...)
			sort.Strings(missing)
			cols = append(cols, fmt.Sprintf("%s(%s)", table, strings.Join(missing, ", ")))
		}
		parts = append(parts, "missing columns: "+strings.Join(cols, "; "))
	}
	return "migrations: schema check failed: " + strings.Join(parts, "; ")
}

// NormalizeDialect maps driver aliases onto "postgres" or "sqlite".
func NormalizeDialect(dialect string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql", "pg", "pgx":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}
}

// ValidateSchema reports a *SchemaError when any checked table or column is
// absent. A nil checks slice uses DefaultTableChecks.
func ValidateSchema(ctx context.Context, db Querier, dialect string, checks []TableCheck) error {
	if db == nil {
		return errors.New("migrations: db required")
	}
	normalized, err := NormalizeDialect(dialect)
	if err != nil {
		return err
	}
	if checks == nil {
		checks = DefaultTableChecks
	}

	var missingTables []string
	missingColumns := make(map[string][]string)
	for _, check := range checks {
		table := strings.TrimSpace(check.Table)
		if table == "" {
			continue
		}
		cols, err := columnsOf(ctx, db, normalized, table)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			missingTables = append(missingTables, table)
			continue
		}
		for _, col := range check.Columns {
			col = strings.ToLower(strings.TrimSpace(col))
			if col != "" && !cols[col] {
				missingColumns[table] = append(missingColumns[table], col)
			}
		}
	}
	if len(missingTables) == 0 && len(missingColumns) == 0 {
		return nil
	}
	sort.Strings(missingTables)
	return &SchemaError{MissingTables: missingTables, MissingColumns: missingColumns}
}

func columnsOf(ctx context.Context, db Querier, dialect, table string) (map[string]bool, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if dialect == "postgres" {
		rows, err = db.QueryContext(ctx, `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1`, table)
	} else {
		rows, err = db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}
