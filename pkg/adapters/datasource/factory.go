package datasource

import (
	"context"
	"fmt"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// NewQueryExecutor creates a query executor for the given connection using
// the adapter registry.
func NewQueryExecutor(ctx context.Context, conn *models.Connection) (QueryExecutor, error) {
	factory := GetFactory(conn.Type)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedDatabase, conn.Type)
	}
	return factory(ctx, conn)
}
