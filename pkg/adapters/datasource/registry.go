package datasource

import (
	"context"
	"sync"

	"github.com/querypilot/querypilot-engine/pkg/models"
)

// ExecutorFactory creates a query executor from connection credentials.
type ExecutorFactory func(ctx context.Context, conn *models.Connection) (QueryExecutor, error)

// Registration contains display info plus the executor factory for one
// database type.
type Registration struct {
	Type        models.DatabaseType
	DisplayName string
	Factory     ExecutorFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[models.DatabaseType]Registration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Type] = reg
}

// GetFactory returns the executor factory for a database type, or nil if the
// type has no registered adapter.
func GetFactory(dbType models.DatabaseType) ExecutorFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if reg, ok := registry[dbType]; ok {
		return reg.Factory
	}
	return nil
}

// RegisteredTypes returns info for all registered adapters.
func RegisteredTypes() []Registration {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Registration, 0, len(registry))
	for _, reg := range registry {
		out = append(out, reg)
	}
	return out
}
