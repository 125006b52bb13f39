// Package mssql provides the Microsoft SQL Server target-database adapter.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/querypilot/querypilot-engine/pkg/adapters/datasource"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// QueryExecutor provides SQL Server query execution against one connection.
type QueryExecutor struct {
	db *sql.DB
}

// NewQueryExecutor creates a SQL Server query executor from connection
// credentials.
func NewQueryExecutor(ctx context.Context, conn *models.Connection) (*QueryExecutor, error) {
	dsn := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(conn.Username, conn.Password),
		Host:     fmt.Sprintf("%s:%d", conn.Host, conn.Port),
		RawQuery: url.Values{"database": {conn.Database}}.Encode(),
	}

	db, err := sql.Open("sqlserver", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("connect to sqlserver: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}

	return &QueryExecutor{db: db}, nil
}

// Query runs a SQL query and returns bounded results using TOP.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, params []any, limit int) (*datasource.QueryExecutionResult, error) {
	queryToRun := fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited",
		datasource.EffectiveLimit(limit), sqlQuery)

	rows, err := e.db.QueryContext(ctx, queryToRun, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return datasource.ScanSQLRows(rows)
}

// Test verifies the connection is usable.
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
		Type:        models.DatabaseMSSQL,
		DisplayName: "Microsoft SQL Server",
		Factory: func(ctx context.Context, conn *models.Connection) (datasource.QueryExecutor, error) {
			return NewQueryExecutor(ctx, conn)
		},
	})
}

// Ensure QueryExecutor implements the adapter contract at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
