package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querypilot/querypilot-engine/pkg/models"
)

type fakeExecutor struct{}

func (f *fakeExecutor) Query(ctx context.Context, sqlQuery string, params []any, limit int) (*QueryExecutionResult, error) {
	return &QueryExecutionResult{}, nil
}
func (f *fakeExecutor) Test(ctx context.Context) error { return nil }
func (f *fakeExecutor) Close() error                   { return nil }

func TestRegistryRoundTrip(t *testing.T) {
	fakeType := models.DatabaseType("fake-engine")
	Register(Registration{
		Type:        fakeType,
		DisplayName: "Fake Engine",
		Factory: func(ctx context.Context, conn *models.Connection) (QueryExecutor, error) {
			return &fakeExecutor{}, nil
		},
	})

	factory := GetFactory(fakeType)
	require.NotNil(t, factory)

	exec, err := factory(context.Background(), &models.Connection{})
	require.NoError(t, err)
	assert.NotNil(t, exec)
}

func TestGetFactoryUnknownType(t *testing.T) {
	assert.Nil(t, GetFactory(models.DatabaseType("no-such-engine")))
}

func TestEffectiveLimit(t *testing.T) {
	assert.Equal(t, MaxQueryLimit, EffectiveLimit(0))
	assert.Equal(t, MaxQueryLimit, EffectiveLimit(-5))
	assert.Equal(t, MaxQueryLimit, EffectiveLimit(MaxQueryLimit+1))
	assert.Equal(t, 50, EffectiveLimit(50))
}
