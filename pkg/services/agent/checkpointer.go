package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
)

// Checkpointer persists workflow state per thread so a run can in
// principle be resumed. The concrete store is swappable; checkpointing is
// optional and the workflow runs without it.
type Checkpointer interface {
	Save(ctx context.Context, threadID uuid.UUID, state *AgentState) error
	Load(ctx context.Context, threadID uuid.UUID) (*AgentState, error)
}

type postgresCheckpointer struct {
	repo repositories.CheckpointRepository
}

// NewPostgresCheckpointer creates a checkpointer backed by the application
// store.
func NewPostgresCheckpointer(repo repositories.CheckpointRepository) Checkpointer {
	return &postgresCheckpointer{repo: repo}
}

var _ Checkpointer = (*postgresCheckpointer)(nil)

func (c *postgresCheckpointer) Save(ctx context.Context, threadID uuid.UUID, state *AgentState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}
	return c.repo.Upsert(ctx, threadID, payload)
}

func (c *postgresCheckpointer) Load(ctx context.Context, threadID uuid.UUID) (*AgentState, error) {
	payload, err := c.repo.Load(ctx, threadID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &AgentState{}
	if err := json.Unmarshal(payload, state); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}
	return state, nil
}
