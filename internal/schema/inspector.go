// Package schema validates analyzed queries against a live PostgreSQL
// database. The connection is optional; when no database URL is configured
// the rest of the tool works purely from text.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Column describes one table column from information_schema.
type Column struct {
	Name       string  `json:"name"`
	DataType   string  `json:"dataType"`
	IsNullable bool    `json:"isNullable"`
	Default    *string `json:"default,omitempty"`
}

// Inspector reads catalog metadata for query validation.
type Inspector struct {
	pool    *pgxpool.Pool
	columns map[string][]Column // per-table cache
}

// Connect opens a pool with retry on transient failures and verifies the
// connection. Auth errors fail fast.
func Connect(ctx context.Context, url string) (*Inspector, error) {
	return connectWithRetry(ctx, url)
}

func newInspectorOnce(ctx context.Context, url string) (*Inspector, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Inspector{pool: pool, columns: make(map[string][]Column)}, nil
}

// Close releases the connection pool.
func (i *Inspector) Close() {
	i.pool.Close()
}

// ServerVersion returns the PostgreSQL server version string.
func (i *Inspector) ServerVersion(ctx context.Context) (string, error) {
	var version string
	err := i.pool.QueryRow(ctx, "SHOW server_version").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("server version: %w", err)
	}
	return version, nil
}

// TableColumns fetches the columns of one table, cached per inspector.
func (i *Inspector) TableColumns(ctx context.Context, table string) ([]Column, error) {
	table = strings.ToLower(table)
	if cols, ok := i.columns[table]; ok {
		return cols, nil
	}

	query := `
		SELECT
			column_name,
			data_type,
			is_nullable = 'YES' AS is_nullable,
			column_default
		FROM information_schema.columns
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
			AND table_name = $1
		ORDER BY ordinal_position`

	rows, err := i.pool.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("get columns for %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.Default); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	i.columns[table] = cols
	return cols, nil
}

// TableExists reports whether the table has any columns in the catalog.
func (i *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	cols, err := i.TableColumns(ctx, table)
	if err != nil {
		return false, err
	}
	return len(cols) > 0, nil
}

// ValidateQuery checks that the query's table and every referenced column
// exist in the live schema. Returned issues are advisory notes; a stale
// log against a migrated schema is a finding, not a failure.
func (i *Inspector) ValidateQuery(ctx context.Context, q *sqlmodel.Query) ([]string, error) {
	if q.PrimaryTable == "" {
		return nil, nil
	}
	cols, err := i.TableColumns(ctx, q.PrimaryTable)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return []string{fmt.Sprintf("table %q does not exist in the connected database", q.PrimaryTable)}, nil
	}

	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[strings.ToLower(c.Name)] = true
	}

	var issues []string
	check := func(name string) {
		if name != "" && !known[strings.ToLower(name)] {
			issues = append(issues, fmt.Sprintf("column %q does not exist on %q", name, q.PrimaryTable))
		}
	}
	for _, c := range q.Conditions {
		check(c.Column.Name)
	}
	for _, c := range q.InsertColumns {
		check(c)
	}
	if q.OrderBy != nil {
		check(q.OrderBy.Column.Name)
	}
	return issues, nil
}
