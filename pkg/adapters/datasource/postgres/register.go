package postgres

import (
	"context"

	"github.com/querypilot/querypilot-engine/pkg/adapters/datasource"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Type:        models.DatabasePostgres,
		DisplayName: "PostgreSQL",
		Factory: func(ctx context.Context, conn *models.Connection) (datasource.QueryExecutor, error) {
			return NewQueryExecutor(ctx, conn)
		},
	})
}
