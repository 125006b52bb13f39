package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/database"
)

// CheckpointRepository persists serialized workflow state per thread.
// One checkpoint per thread; saves overwrite.
type CheckpointRepository interface {
	Upsert(ctx context.Context, threadID uuid.UUID, state []byte) error
	Load(ctx context.Context, threadID uuid.UUID) ([]byte, error)
	Delete(ctx context.Context, threadID uuid.UUID) error
}

type checkpointRepository struct {
	db *database.DB
}

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(db *database.DB) CheckpointRepository {
	return &checkpointRepository{db: db}
}

var _ CheckpointRepository = (*checkpointRepository)(nil)

func (r *checkpointRepository) Upsert(ctx context.Context, threadID uuid.UUID, state []byte) error {
	query := `
		INSERT INTO checkpoints (thread_id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (thread_id) DO UPDATE
		SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Exec(ctx, query, threadID, state, time.Now()); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (r *checkpointRepository) Load(ctx context.Context, threadID uuid.UUID) ([]byte, error) {
	var state []byte
	err := r.db.QueryRow(ctx, `SELECT state FROM checkpoints WHERE thread_id = $1`, threadID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return state, nil
}

func (r *checkpointRepository) Delete(ctx context.Context, threadID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM checkpoints WHERE thread_id = $1`, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
