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

// SqlResultRepository provides data access for persisted query results.
type SqlResultRepository interface {
	Create(ctx context.Context, result *models.SqlResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SqlResult, error)
	GetByInteraction(ctx context.Context, interactionID uuid.UUID) (*models.SqlResult, error)
}

type sqlResultRepository struct {
	db *database.DB
}

// NewSqlResultRepository creates a new SqlResultRepository.
func NewSqlResultRepository(db *database.DB) SqlResultRepository {
	return &sqlResultRepository{db: db}
}

var _ SqlResultRepository = (*sqlResultRepository)(nil)

func (r *sqlResultRepository) Create(ctx context.Context, result *models.SqlResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	result.CreatedAt = time.Now()
	result.RowCount = len(result.Rows)

	rowsJSON, err := json.Marshal(result.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	query := `
		INSERT INTO sql_results (
			id, interaction_id, sql, rows, row_count,
			status, error_message, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Exec(ctx, query,
		result.ID, result.InteractionID, result.SQL, rowsJSON, result.RowCount,
		result.Status, result.ErrorMessage, result.DurationMs, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sql result: %w", err)
	}
	return nil
}

func scanSqlResult(row pgx.Row) (*models.SqlResult, error) {
	result := &models.SqlResult{}
	var rowsJSON []byte

	err := row.Scan(
		&result.ID, &result.InteractionID, &result.SQL, &rowsJSON, &result.RowCount,
		&result.Status, &result.ErrorMessage, &result.DurationMs, &result.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(rowsJSON) > 0 {
		if err := json.Unmarshal(rowsJSON, &result.Rows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
		}
	}
	return result, nil
}

func (r *sqlResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SqlResult, error) {
	query := `
		SELECT id, interaction_id, sql, rows, row_count,
		       status, error_message, duration_ms, created_at
		FROM sql_results
		WHERE id = $1`

	result, err := scanSqlResult(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sql result: %w", err)
	}
	return result, nil
}

func (r *sqlResultRepository) GetByInteraction(ctx context.Context, interactionID uuid.UUID) (*models.SqlResult, error) {
	query := `
		SELECT id, interaction_id, sql, rows, row_count,
		       status, error_message, duration_ms, created_at
		FROM sql_results
		WHERE interaction_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	result, err := scanSqlResult(r.db.QueryRow(ctx, query, interactionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sql result: %w", err)
	}
	return result, nil
}
