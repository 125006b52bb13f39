package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/database"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// InteractionFinalization carries the fields the orchestrator writes back
// after graph completion.
type InteractionFinalization struct {
	ExecutionStatus models.ExecutionStatus
	Response        string
	DurationMs      *int64
	ErrorMessage    *string
	UsedExampleIDs  []uuid.UUID
	SimpleMessages  []models.SimpleMessage
}

// InteractionRepository provides data access for interactions.
type InteractionRepository interface {
	Create(ctx context.Context, interaction *models.Interaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Interaction, error)
	ListByThread(ctx context.Context, threadID uuid.UUID) ([]*models.Interaction, error)
	Finalize(ctx context.Context, id uuid.UUID, fin *InteractionFinalization) error
	SetSqlResultID(ctx context.Context, id, sqlResultID uuid.UUID) error
	SetVisualizationID(ctx context.Context, id, visualizationID uuid.UUID) error
	SetRating(ctx context.Context, id uuid.UUID, rating models.Rating, feedback *string) error
}

type interactionRepository struct {
	db *database.DB
}

// NewInteractionRepository creates a new InteractionRepository.
func NewInteractionRepository(db *database.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

var _ InteractionRepository = (*interactionRepository)(nil)

func (r *interactionRepository) Create(ctx context.Context, interaction *models.Interaction) error {
	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	now := time.Now()
	interaction.CreatedAt = now
	interaction.UpdatedAt = now
	if interaction.ExecutionStatus == "" {
		interaction.ExecutionStatus = models.StatusPending
	}

	messagesJSON, err := json.Marshal(interaction.SimpleMessages)
	if err != nil {
		return fmt.Errorf("failed to marshal simple_messages: %w", err)
	}

	query := `
		INSERT INTO interactions (
			id, thread_id, query, response, execution_status,
			duration_ms, error_message, simple_messages, used_example_ids,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		interaction.ID, interaction.ThreadID, interaction.Query, interaction.Response,
		interaction.ExecutionStatus, interaction.DurationMs, interaction.ErrorMessage,
		messagesJSON, interaction.UsedExampleIDs,
		interaction.CreatedAt, interaction.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create interaction: %w", err)
	}
	return nil
}

const interactionColumns = `
	id, thread_id, query, response, execution_status,
	duration_ms, error_message, sql_result_id, visualization_id,
	simple_messages, used_example_ids, rating, feedback, rated_at,
	created_at, updated_at`

func scanInteraction(row pgx.Row) (*models.Interaction, error) {
	interaction := &models.Interaction{}
	var messagesJSON []byte

	err := row.Scan(
		&interaction.ID, &interaction.ThreadID, &interaction.Query, &interaction.Response,
		&interaction.ExecutionStatus, &interaction.DurationMs, &interaction.ErrorMessage,
		&interaction.SqlResultID, &interaction.VisualizationID,
		&messagesJSON, &interaction.UsedExampleIDs,
		&interaction.Rating, &interaction.Feedback, &interaction.RatedAt,
		&interaction.CreatedAt, &interaction.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(messagesJSON) > 0 {
		if err := json.Unmarshal(messagesJSON, &interaction.SimpleMessages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal simple_messages: %w", err)
		}
	}
	return interaction, nil
}

func (r *interactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE id = $1`

	interaction, err := scanInteraction(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}
	return interaction, nil
}

func (r *interactionRepository) ListByThread(ctx context.Context, threadID uuid.UUID) ([]*models.Interaction, error) {
	query := `SELECT ` + interactionColumns + `
		FROM interactions
		WHERE thread_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	interactions := make([]*models.Interaction, 0)
	for rows.Next() {
		interaction, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, interaction)
	}
	return interactions, rows.Err()
}

func (r *interactionRepository) Finalize(ctx context.Context, id uuid.UUID, fin *InteractionFinalization) error {
	messagesJSON, err := json.Marshal(fin.SimpleMessages)
	if err != nil {
		return fmt.Errorf("failed to marshal simple_messages: %w", err)
	}

	query := `
		UPDATE interactions
		SET execution_status = $2,
		    response = $3,
		    duration_ms = $4,
		    error_message = $5,
		    used_example_ids = $6,
		    simple_messages = $7,
		    updated_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		id, fin.ExecutionStatus, fin.Response, fin.DurationMs, fin.ErrorMessage,
		fin.UsedExampleIDs, messagesJSON, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to finalize interaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *interactionRepository) SetSqlResultID(ctx context.Context, id, sqlResultID uuid.UUID) error {
	query := `UPDATE interactions SET sql_result_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, sqlResultID, time.Now()); err != nil {
		return fmt.Errorf("failed to link sql result: %w", err)
	}
	return nil
}

func (r *interactionRepository) SetVisualizationID(ctx context.Context, id, visualizationID uuid.UUID) error {
	query := `UPDATE interactions SET visualization_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, visualizationID, time.Now()); err != nil {
		return fmt.Errorf("failed to link visualization: %w", err)
	}
	return nil
}

func (r *interactionRepository) SetRating(ctx context.Context, id uuid.UUID, rating models.Rating, feedback *string) error {
	query := `UPDATE interactions SET rating = $2, feedback = $3, rated_at = $4, updated_at = $4 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, rating, feedback, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
