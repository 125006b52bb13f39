// Package datasource provides adapters for executing generated SQL against
// user-configured target databases. Adapters register themselves by database
// type; executors are created per workflow execution from Connection
// credentials and closed when the execution finishes.
package datasource

import (
	"context"
)

// MaxQueryLimit is the hard cap on rows returned from a target database.
const MaxQueryLimit = 1000

// ColumnInfo describes a result column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryExecutionResult holds a bounded result set from a target database.
type QueryExecutionResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// QueryExecutor runs read queries against one target database connection.
type QueryExecutor interface {
	// Query runs a SQL query with optional positional parameters and returns
	// bounded results. A limit <= 0 or above MaxQueryLimit is clamped to
	// MaxQueryLimit.
	Query(ctx context.Context, sqlQuery string, params []any, limit int) (*QueryExecutionResult, error)

	// Test verifies the connection is usable (SELECT 1 round trip).
	Test(ctx context.Context) error

	// Close releases the underlying connection or pool.
	Close() error
}

// EffectiveLimit clamps a requested limit to (0, MaxQueryLimit].
func EffectiveLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
