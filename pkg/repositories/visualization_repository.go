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

// VisualizationRepository provides data access for chart suggestions.
type VisualizationRepository interface {
	Create(ctx context.Context, viz *models.Visualization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Visualization, error)
}

type visualizationRepository struct {
	db *database.DB
}

// NewVisualizationRepository creates a new VisualizationRepository.
func NewVisualizationRepository(db *database.DB) VisualizationRepository {
	return &visualizationRepository{db: db}
}

var _ VisualizationRepository = (*visualizationRepository)(nil)

func (r *visualizationRepository) Create(ctx context.Context, viz *models.Visualization) error {
	if viz.ID == uuid.Nil {
		viz.ID = uuid.New()
	}
	viz.CreatedAt = time.Now()

	graphsJSON, err := json.Marshal(viz.Graphs)
	if err != nil {
		return fmt.Errorf("failed to marshal graphs: %w", err)
	}

	query := `
		INSERT INTO visualizations (id, interaction_id, should_visualize, reasoning, graphs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.Exec(ctx, query,
		viz.ID, viz.InteractionID, viz.ShouldVisualize, viz.Reasoning, graphsJSON, viz.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create visualization: %w", err)
	}
	return nil
}

func (r *visualizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Visualization, error) {
	query := `
		SELECT id, interaction_id, should_visualize, reasoning, graphs, created_at
		FROM visualizations
		WHERE id = $1`

	viz := &models.Visualization{}
	var graphsJSON []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&viz.ID, &viz.InteractionID, &viz.ShouldVisualize, &viz.Reasoning, &graphsJSON, &viz.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visualization: %w", err)
	}

	if len(graphsJSON) > 0 {
		if err := json.Unmarshal(graphsJSON, &viz.Graphs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal graphs: %w", err)
		}
	}
	return viz, nil
}
