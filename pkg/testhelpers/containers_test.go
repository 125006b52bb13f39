//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestEngineDB_MigratedSchema(t *testing.T) {
	engineDB := GetEngineDB(t)

	ctx := context.Background()

	tables := []string{
		"connections", "threads", "interactions",
		"sql_results", "visualizations", "examples", "checkpoints",
	}
	for _, table := range tables {
		var exists bool
		err := engineDB.DB.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table).Scan(&exists)
		if err != nil {
			t.Fatalf("failed to check table %s: %v", table, err)
		}
		if !exists {
			t.Errorf("expected table %s after migrations", table)
		}
	}
}

func TestEngineDB_VectorExtension(t *testing.T) {
	engineDB := GetEngineDB(t)

	var exists bool
	err := engineDB.DB.QueryRow(context.Background(),
		"SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check vector extension: %v", err)
	}
	if !exists {
		t.Error("expected pgvector extension to be installed")
	}
}
