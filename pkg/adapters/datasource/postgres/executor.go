// Package postgres provides the PostgreSQL target-database adapter.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/querypilot/querypilot-engine/pkg/adapters/datasource"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// QueryExecutor provides PostgreSQL query execution against one connection.
type QueryExecutor struct {
	pool *pgxpool.Pool
}

// NewQueryExecutor creates a PostgreSQL query executor from connection
// credentials. The pool is owned by the executor and released on Close.
func NewQueryExecutor(ctx context.Context, conn *models.Connection) (*QueryExecutor, error) {
	pool, err := pgxpool.New(ctx, buildConnectionString(conn))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &QueryExecutor{pool: pool}, nil
}

// Query runs a SQL query and returns bounded results.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, params []any, limit int) (*datasource.QueryExecutionResult, error) {
	queryToRun := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d",
		sqlQuery, datasource.EffectiveLimit(limit))

	rows, err := e.pool.Query(ctx, queryToRun, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = datasource.ColumnInfo{
			Name: string(fd.Name),
			Type: typeNameFromOID(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &datasource.QueryExecutionResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// Test verifies the connection is usable.
func (e *QueryExecutor) Test(ctx context.Context) error {
	var probe int
	if err := e.pool.QueryRow(ctx, "SELECT 1 AS test").Scan(&probe); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// Close releases the pool.
func (e *QueryExecutor) Close() error {
	e.pool.Close()
	return nil
}

func buildConnectionString(conn *models.Connection) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(conn.Username), url.QueryEscape(conn.Password),
		conn.Host, conn.Port, conn.Database)
}

// typeNameFromOID maps common PostgreSQL type OIDs to readable names.
func typeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "bool"
	case 20:
		return "int8"
	case 21:
		return "int2"
	case 23:
		return "int4"
	case 25:
		return "text"
	case 700:
		return "float4"
	case 701:
		return "float8"
	case 1043:
		return "varchar"
	case 1082:
		return "date"
	case 1114:
		return "timestamp"
	case 1184:
		return "timestamptz"
	case 1700:
		return "numeric"
	case 2950:
		return "uuid"
	case 3802:
		return "jsonb"
	default:
		return fmt.Sprintf("oid(%d)", oid)
	}
}

// Ensure QueryExecutor implements the adapter contract at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
