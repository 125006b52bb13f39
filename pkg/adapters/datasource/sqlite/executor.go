// Package sqlite provides the SQLite target-database adapter. The
// connection's database field holds the file path; host and port are unused.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/querypilot/querypilot-engine/pkg/adapters/datasource"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// QueryExecutor provides SQLite query execution against one database file.
type QueryExecutor struct {
	db *sql.DB
}

// NewQueryExecutor creates a SQLite query executor from connection credentials.
func NewQueryExecutor(ctx context.Context, conn *models.Connection) (*QueryExecutor, error) {
	db, err := sql.Open("sqlite", conn.Database)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &QueryExecutor{db: db}, nil
}

// Query runs a SQL query and returns bounded results.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, params []any, limit int) (*datasource.QueryExecutionResult, error) {
	queryToRun := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d",
		sqlQuery, datasource.EffectiveLimit(limit))

	rows, err := e.db.QueryContext(ctx, queryToRun, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return datasource.ScanSQLRows(rows)
}

// Test verifies the database file is usable.
func (e *QueryExecutor) Test(ctx context.Context) error {
	var probe int
	if err := e.db.QueryRowContext(ctx, "SELECT 1 AS test").Scan(&probe); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// Close releases the connection.
func (e *QueryExecutor) Close() error {
	return e.db.Close()
}

func init() {
	datasource.Register(datasource.Registration{
		Type:        models.DatabaseSQLite,
		DisplayName: "SQLite",
		Factory: func(ctx context.Context, conn *models.Connection) (datasource.QueryExecutor, error) {
			return NewQueryExecutor(ctx, conn)
		},
	})
}

// Ensure QueryExecutor implements the adapter contract at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
