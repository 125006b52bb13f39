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
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// ThreadRepository provides data access for conversation threads.
type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Thread, error)
	List(ctx context.Context, limit int) ([]*models.Thread, error)
	UpdateTopic(ctx context.Context, id uuid.UUID, topic string) error
	Touch(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByConnection(ctx context.Context, connectionID uuid.UUID) (int, error)
}

type threadRepository struct {
	db *database.DB
}

// NewThreadRepository creates a new ThreadRepository.
func NewThreadRepository(db *database.DB) ThreadRepository {
	return &threadRepository{db: db}
}

var _ ThreadRepository = (*threadRepository)(nil)

func (r *threadRepository) Create(ctx context.Context, thread *models.Thread) error {
	if thread.ID == uuid.Nil {
		thread.ID = uuid.New()
	}
	now := time.Now()
	thread.CreatedAt = now
	thread.UpdatedAt = now

	query := `
		INSERT INTO threads (id, topic, locale, timezone, connection_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		thread.ID, thread.Topic, thread.Locale, thread.Timezone,
		thread.ConnectionID, thread.CreatedAt, thread.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

func (r *threadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Thread, error) {
	query := `
		SELECT id, topic, locale, timezone, connection_id, created_at, updated_at
		FROM threads
		WHERE id = $1`

	thread := &models.Thread{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&thread.ID, &thread.Topic, &thread.Locale, &thread.Timezone,
		&thread.ConnectionID, &thread.CreatedAt, &thread.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return thread, nil
}

func (r *threadRepository) List(ctx context.Context, limit int) ([]*models.Thread, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, topic, locale, timezone, connection_id, created_at, updated_at
		FROM threads
		ORDER BY updated_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	threads := make([]*models.Thread, 0)
	for rows.Next() {
		thread := &models.Thread{}
		if err := rows.Scan(
			&thread.ID, &thread.Topic, &thread.Locale, &thread.Timezone,
			&thread.ConnectionID, &thread.CreatedAt, &thread.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

func (r *threadRepository) UpdateTopic(ctx context.Context, id uuid.UUID, topic string) error {
	query := `UPDATE threads SET topic = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, topic, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update thread topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *threadRepository) Touch(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE threads SET updated_at = $2 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to touch thread: %w", err)
	}
	return nil
}

// Delete removes the thread; interactions, sql results, and visualizations
// cascade via foreign keys.
func (r *threadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM threads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *threadRepository) CountByConnection(ctx context.Context, connectionID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM threads WHERE connection_id = $1`, connectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count threads for connection: %w", err)
	}
	return count, nil
}
