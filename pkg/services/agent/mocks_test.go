package agent

import (
	"context"

	"github.com/google/uuid"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
)

// Configurable repository mocks. Set the function fields to control
// behavior; unset methods return zero values.

type mockConnectionRepo struct {
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*models.Connection, error)

	GetByIDCalls int
}

func (m *mockConnectionRepo) Create(ctx context.Context, conn *models.Connection) error { return nil }
func (m *mockConnectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	m.GetByIDCalls++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}
func (m *mockConnectionRepo) List(ctx context.Context) ([]*models.Connection, error) {
	return nil, nil
}
func (m *mockConnectionRepo) Update(ctx context.Context, conn *models.Connection) error { return nil }
func (m *mockConnectionRepo) Delete(ctx context.Context, id uuid.UUID) error            { return nil }

var _ repositories.ConnectionRepository = (*mockConnectionRepo)(nil)

type mockInteractionRepo struct {
	ListByThreadFunc func(ctx context.Context, threadID uuid.UUID) ([]*models.Interaction, error)

	SqlResultIDs     map[uuid.UUID]uuid.UUID
	VisualizationIDs map[uuid.UUID]uuid.UUID
}

func newMockInteractionRepo() *mockInteractionRepo {
	return &mockInteractionRepo{
		SqlResultIDs:     map[uuid.UUID]uuid.UUID{},
		VisualizationIDs: map[uuid.UUID]uuid.UUID{},
	}
}

func (m *mockInteractionRepo) Create(ctx context.Context, interaction *models.Interaction) error {
	return nil
}
func (m *mockInteractionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	return nil, apperrors.ErrNotFound
}
func (m *mockInteractionRepo) ListByThread(ctx context.Context, threadID uuid.UUID) ([]*models.Interaction, error) {
	if m.ListByThreadFunc != nil {
		return m.ListByThreadFunc(ctx, threadID)
	}
	return nil, nil
}
func (m *mockInteractionRepo) Finalize(ctx context.Context, id uuid.UUID, fin *repositories.InteractionFinalization) error {
	return nil
}
func (m *mockInteractionRepo) SetSqlResultID(ctx context.Context, id, sqlResultID uuid.UUID) error {
	m.SqlResultIDs[id] = sqlResultID
	return nil
}
func (m *mockInteractionRepo) SetVisualizationID(ctx context.Context, id, visualizationID uuid.UUID) error {
	m.VisualizationIDs[id] = visualizationID
	return nil
}
func (m *mockInteractionRepo) SetRating(ctx context.Context, id uuid.UUID, rating models.Rating, feedback *string) error {
	return nil
}

var _ repositories.InteractionRepository = (*mockInteractionRepo)(nil)

type mockSqlResultRepo struct {
	CreateFunc  func(ctx context.Context, result *models.SqlResult) error
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*models.SqlResult, error)

	Created []*models.SqlResult
}

func (m *mockSqlResultRepo) Create(ctx context.Context, result *models.SqlResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	m.Created = append(m.Created, result)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, result)
	}
	return nil
}
func (m *mockSqlResultRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SqlResult, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}
func (m *mockSqlResultRepo) GetByInteraction(ctx context.Context, interactionID uuid.UUID) (*models.SqlResult, error) {
	return nil, apperrors.ErrNotFound
}

var _ repositories.SqlResultRepository = (*mockSqlResultRepo)(nil)

type mockVisualizationRepo struct {
	CreateFunc func(ctx context.Context, viz *models.Visualization) error

	Created []*models.Visualization
}

func (m *mockVisualizationRepo) Create(ctx context.Context, viz *models.Visualization) error {
	if viz.ID == uuid.Nil {
		viz.ID = uuid.New()
	}
	m.Created = append(m.Created, viz)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, viz)
	}
	return nil
}
func (m *mockVisualizationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Visualization, error) {
	return nil, apperrors.ErrNotFound
}

var _ repositories.VisualizationRepository = (*mockVisualizationRepo)(nil)

type mockExampleSource struct {
	FindSimilarFunc func(ctx context.Context, query string, limit int, threshold float64) ([]models.RankedExample, error)
}

func (m *mockExampleSource) FindSimilar(ctx context.Context, query string, limit int, threshold float64) ([]models.RankedExample, error) {
	if m.FindSimilarFunc != nil {
		return m.FindSimilarFunc(ctx, query, limit, threshold)
	}
	return nil, nil
}

var _ ExampleSource = (*mockExampleSource)(nil)

type mockCheckpointer struct {
	SaveFunc func(ctx context.Context, threadID uuid.UUID, state *AgentState) error

	Saved []*AgentState
}

func (m *mockCheckpointer) Save(ctx context.Context, threadID uuid.UUID, state *AgentState) error {
	m.Saved = append(m.Saved, state)
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, threadID, state)
	}
	return nil
}
func (m *mockCheckpointer) Load(ctx context.Context, threadID uuid.UUID) (*AgentState, error) {
	return nil, nil
}

var _ Checkpointer = (*mockCheckpointer)(nil)
