package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/database"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// ExampleRepository provides data access for learned question/SQL examples.
// Vector search runs over pgvector with cosine distance; only examples whose
// stored embedding dimension matches the query embedding participate.
type ExampleRepository interface {
	Create(ctx context.Context, example *models.Example) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Example, error)
	List(ctx context.Context, limit int) ([]*models.Example, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SearchSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.RankedExample, error)
	SearchLexical(ctx context.Context, question string, limit int) ([]models.RankedExample, error)
	MaxSimilarity(ctx context.Context, embedding []float32) (float64, error)

	IncrementUsage(ctx context.Context, ids []uuid.UUID) error
	RecordFeedback(ctx context.Context, ids []uuid.UUID, positive bool) error
}

type exampleRepository struct {
	db *database.DB
}

// NewExampleRepository creates a new ExampleRepository.
func NewExampleRepository(db *database.DB) ExampleRepository {
	return &exampleRepository{db: db}
}

var _ ExampleRepository = (*exampleRepository)(nil)

func (r *exampleRepository) Create(ctx context.Context, example *models.Example) error {
	if example.ID == uuid.Nil {
		example.ID = uuid.New()
	}
	now := time.Now()
	example.CreatedAt = now
	example.UpdatedAt = now

	query := `
		INSERT INTO examples (
			id, question, sql, embedding, quality_score,
			usage_count, success_count, feedback_count, positive_feedback,
			is_verified, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		example.ID, example.Question, example.SQL, pgvector.NewVector(example.Embedding),
		example.QualityScore, example.UsageCount, example.SuccessCount,
		example.FeedbackCount, example.PositiveFeedback, example.IsVerified,
		example.CreatedAt, example.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create example: %w", err)
	}
	return nil
}

func (r *exampleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Example, error) {
	query := `
		SELECT id, question, sql, embedding, quality_score,
		       usage_count, success_count, feedback_count, positive_feedback,
		       is_verified, created_at, updated_at
		FROM examples
		WHERE id = $1`

	example := &models.Example{}
	var embedding pgvector.Vector
	err := r.db.QueryRow(ctx, query, id).Scan(
		&example.ID, &example.Question, &example.SQL, &embedding,
		&example.QualityScore, &example.UsageCount, &example.SuccessCount,
		&example.FeedbackCount, &example.PositiveFeedback, &example.IsVerified,
		&example.CreatedAt, &example.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get example: %w", err)
	}
	example.Embedding = embedding.Slice()
	return example, nil
}

func (r *exampleRepository) List(ctx context.Context, limit int) ([]*models.Example, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, question, sql, quality_score,
		       usage_count, success_count, feedback_count, positive_feedback,
		       is_verified, created_at, updated_at
		FROM examples
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list examples: %w", err)
	}
	defer rows.Close()

	examples := make([]*models.Example, 0)
	for rows.Next() {
		example := &models.Example{}
		if err := rows.Scan(
			&example.ID, &example.Question, &example.SQL,
			&example.QualityScore, &example.UsageCount, &example.SuccessCount,
			&example.FeedbackCount, &example.PositiveFeedback, &example.IsVerified,
			&example.CreatedAt, &example.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan example: %w", err)
		}
		examples = append(examples, example)
	}
	return examples, rows.Err()
}

func (r *exampleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM examples WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete example: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SearchSimilar finds examples above the cosine similarity threshold,
// closest first. Similarity is 1 minus cosine distance.
func (r *exampleRepository) SearchSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.RankedExample, error) {
	query := `
		SELECT id, question, sql, 1 - (embedding <=> $1) AS similarity
		FROM examples
		WHERE vector_dims(embedding) = $2
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1 ASC
		LIMIT $4`

	rows, err := r.db.Query(ctx, query,
		pgvector.NewVector(embedding), len(embedding), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search examples: %w", err)
	}
	defer rows.Close()

	results := make([]models.RankedExample, 0)
	for rows.Next() {
		var ranked models.RankedExample
		var similarity float64
		if err := rows.Scan(&ranked.ID, &ranked.Question, &ranked.SQL, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan ranked example: %w", err)
		}
		ranked.Similarity = &similarity
		results = append(results, ranked)
	}
	return results, rows.Err()
}

// SearchLexical is the fallback retrieval path when vector search is
// unavailable. Hits carry no similarity score.
func (r *exampleRepository) SearchLexical(ctx context.Context, question string, limit int) ([]models.RankedExample, error) {
	query := `
		SELECT id, question, sql
		FROM examples
		WHERE question ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, question, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search examples lexically: %w", err)
	}
	defer rows.Close()

	results := make([]models.RankedExample, 0)
	for rows.Next() {
		var ranked models.RankedExample
		if err := rows.Scan(&ranked.ID, &ranked.Question, &ranked.SQL); err != nil {
			return nil, fmt.Errorf("failed to scan ranked example: %w", err)
		}
		results = append(results, ranked)
	}
	return results, rows.Err()
}

// MaxSimilarity returns the highest cosine similarity between the embedding
// and any stored example of matching dimension, or 0 when none exist.
func (r *exampleRepository) MaxSimilarity(ctx context.Context, embedding []float32) (float64, error) {
	query := `
		SELECT COALESCE(MAX(1 - (embedding <=> $1)), 0)
		FROM examples
		WHERE vector_dims(embedding) = $2`

	var similarity float64
	err := r.db.QueryRow(ctx, query, pgvector.NewVector(embedding), len(embedding)).Scan(&similarity)
	if err != nil {
		return 0, fmt.Errorf("failed to compute max similarity: %w", err)
	}
	return similarity, nil
}

func (r *exampleRepository) IncrementUsage(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE examples
		SET usage_count = usage_count + 1,
		    success_count = success_count + 1,
		    updated_at = $2
		WHERE id = ANY($1)`
	if _, err := r.db.Exec(ctx, query, ids, time.Now()); err != nil {
		return fmt.Errorf("failed to increment example usage: %w", err)
	}
	return nil
}

func (r *exampleRepository) RecordFeedback(ctx context.Context, ids []uuid.UUID, positive bool) error {
	if len(ids) == 0 {
		return nil
	}
	positiveDelta := 0
	if positive {
		positiveDelta = 1
	}
	query := `
		UPDATE examples
		SET feedback_count = feedback_count + 1,
		    positive_feedback = positive_feedback + $2,
		    updated_at = $3
		WHERE id = ANY($1)`
	if _, err := r.db.Exec(ctx, query, ids, positiveDelta, time.Now()); err != nil {
		return fmt.Errorf("failed to record example feedback: %w", err)
	}
	return nil
}
