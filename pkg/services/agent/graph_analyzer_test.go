package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/services/progress"
)

type workflowFixture struct {
	workflow        *Workflow
	connectionRepo  *mockConnectionRepo
	interactionRepo *mockInteractionRepo
	sqlResultRepo   *mockSqlResultRepo
	vizRepo         *mockVisualizationRepo
	examples        *mockExampleSource
	factory         *llm.MockClientFactory
}

func newWorkflowFixture() *workflowFixture {
	f := &workflowFixture{
		connectionRepo:  &mockConnectionRepo{},
		interactionRepo: newMockInteractionRepo(),
		sqlResultRepo:   &mockSqlResultRepo{},
		vizRepo:         &mockVisualizationRepo{},
		examples:        &mockExampleSource{},
		factory:         llm.NewMockClientFactory(),
	}
	f.workflow = NewWorkflow(
		f.connectionRepo, f.interactionRepo, f.sqlResultRepo, f.vizRepo,
		f.examples, f.factory, nil, zap.NewNop())
	return f
}

func newTestTracker() *progress.Tracker {
	return progress.NewTracker(uuid.New(), nil, zap.NewNop())
}

func twoRows() []map[string]any {
	return []map[string]any{
		{"month": "2026-01", "revenue": 100.0},
		{"month": "2026-02", "revenue": 150.0},
	}
}

func TestAnalyzeGraphs_SingleRowShortCircuits(t *testing.T) {
	f := newWorkflowFixture()
	state := &AgentState{
		ThreadID:      uuid.New(),
		InteractionID: uuid.New(),
		Rows:          []map[string]any{{"total": 42}},
	}

	delta := f.workflow.analyzeGraphs(context.Background(), state, newTestTracker())

	assert.False(t, delta.ShouldVisualize)
	assert.Empty(t, delta.Graphs)
	assert.Empty(t, f.vizRepo.Created)
	// No model call for a single-row result.
	assert.Equal(t, 0, f.factory.MockClient.GenerateResponseCalls)
}

func TestAnalyzeGraphs_ValidGraphPersisted(t *testing.T) {
	f := newWorkflowFixture()
	f.factory.MockClient.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: `{
			"shouldVisualize": true,
			"reasoning": "Monthly revenue trends suit a line chart.",
			"graphs": [{
				"type": "line",
				"title": "Revenue by month",
				"xAxis": {"field": "month", "label": "Month"},
				"yAxis": {"field": "revenue", "label": "Revenue"}
			}]
		}`}, nil
	}

	interactionID := uuid.New()
	state := &AgentState{
		ThreadID:      uuid.New(),
		InteractionID: interactionID,
		Query:         "revenue by month",
		SQL:           "SELECT month, revenue FROM sales",
		Rows:          twoRows(),
	}

	delta := f.workflow.analyzeGraphs(context.Background(), state, newTestTracker())

	assert.True(t, delta.ShouldVisualize)
	require.Len(t, delta.Graphs, 1)
	assert.Equal(t, models.GraphLine, delta.Graphs[0].Type)

	require.Len(t, f.vizRepo.Created, 1)
	viz := f.vizRepo.Created[0]
	assert.Equal(t, interactionID, viz.InteractionID)
	assert.True(t, viz.ShouldVisualize)
	require.NotNil(t, delta.VisualizationID)
	assert.Equal(t, viz.ID, *delta.VisualizationID)
	assert.Equal(t, viz.ID, f.interactionRepo.VisualizationIDs[interactionID])
}

func TestAnalyzeGraphs_MissingAxisFieldFiltered(t *testing.T) {
	f := newWorkflowFixture()
	f.factory.MockClient.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: `{
			"shouldVisualize": true,
			"reasoning": "Bar chart of revenue.",
			"graphs": [{
				"type": "bar",
				"title": "Revenue",
				"xAxis": {"field": "month"},
				"yAxis": {"label": "Revenue"}
			}]
		}`}, nil
	}

	state := &AgentState{
		ThreadID:      uuid.New(),
		InteractionID: uuid.New(),
		Rows:          twoRows(),
	}

	delta := f.workflow.analyzeGraphs(context.Background(), state, newTestTracker())

	// The only proposal lacked a yAxis field binding, so the decision
	// flips to no visualization and nothing is persisted.
	assert.False(t, delta.ShouldVisualize)
	assert.Empty(t, delta.Graphs)
	assert.Empty(t, f.vizRepo.Created)
}

func TestAnalyzeGraphs_LLMFailureFailsSoft(t *testing.T) {
	f := newWorkflowFixture()
	f.factory.MockClient.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (*llm.GenerateResponseResult, error) {
		return nil, errors.New("model unavailable")
	}

	state := &AgentState{
		ThreadID:      uuid.New(),
		InteractionID: uuid.New(),
		Rows:          twoRows(),
	}

	delta := f.workflow.analyzeGraphs(context.Background(), state, newTestTracker())

	assert.False(t, delta.ShouldVisualize)
	assert.Empty(t, f.vizRepo.Created)
	require.Len(t, delta.Errors, 1)
	assert.Contains(t, delta.Errors[0], "graph analysis failed")
}

func TestAnalyzeGraphs_PersistFailureDegrades(t *testing.T) {
	f := newWorkflowFixture()
	f.factory.MockClient.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: `{
			"shouldVisualize": true,
			"reasoning": "Line chart.",
			"graphs": [{
				"type": "line",
				"title": "Revenue by month",
				"xAxis": {"field": "month"},
				"yAxis": {"field": "revenue"}
			}]
		}`}, nil
	}
	f.vizRepo.CreateFunc = func(ctx context.Context, viz *models.Visualization) error {
		return errors.New("store down")
	}

	state := &AgentState{
		ThreadID:      uuid.New(),
		InteractionID: uuid.New(),
		Rows:          twoRows(),
	}

	delta := f.workflow.analyzeGraphs(context.Background(), state, newTestTracker())

	assert.False(t, delta.ShouldVisualize)
	assert.Nil(t, delta.Graphs)
	assert.Nil(t, delta.VisualizationID)
	require.Len(t, delta.Errors, 1)
	assert.Contains(t, delta.Errors[0], "failed to persist visualization")
}

func TestFilterGraphs(t *testing.T) {
	graphs := []models.GraphSpec{
		{Type: models.GraphLine, XAxis: models.AxisBinding{Field: "x"}, YAxis: models.AxisBinding{Field: "y"}},
		{Type: models.GraphBar, XAxis: models.AxisBinding{Field: "x"}},
		{Type: models.GraphPie, YAxis: models.AxisBinding{Field: "y"}},
		{Type: models.GraphTable},
	}

	valid := filterGraphs(graphs)

	require.Len(t, valid, 1)
	assert.Equal(t, models.GraphLine, valid[0].Type)
}
