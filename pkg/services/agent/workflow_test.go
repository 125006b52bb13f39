package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "github.com/querypilot/querypilot-engine/pkg/adapters/datasource/sqlite"
	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/prompts"
)

// scriptResponses routes mock completions by the temperature each node
// uses: topic 0.3, intent 0.1, chitchat 0.7, graph analysis 0.2.
func scriptResponses(f *workflowFixture, intent, chitchatReply, graphJSON string) {
	f.factory.MockClient.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (*llm.GenerateResponseResult, error) {
		switch temp {
		case 0.3:
			return &llm.GenerateResponseResult{Content: "Test Conversation"}, nil
		case 0.1:
			return &llm.GenerateResponseResult{Content: `{"intent": "` + intent + `", "confidence": 0.95}`}, nil
		case 0.7:
			return &llm.GenerateResponseResult{Content: chitchatReply}, nil
		case 0.2:
			return &llm.GenerateResponseResult{Content: graphJSON}, nil
		}
		return nil, errors.New("unexpected completion request")
	}
}

func sqliteConnection() *models.Connection {
	return &models.Connection{
		ID:       uuid.New(),
		Name:     "metrics",
		Database: ":memory:",
		Type:     models.DatabaseSQLite,
		Active:   true,
	}
}

func newRunState(connectionID uuid.UUID, query string) *AgentState {
	return &AgentState{
		ThreadID:      uuid.New(),
		InteractionID: uuid.New(),
		ConnectionID:  connectionID,
		Query:         query,
	}
}

func TestRun_ChitchatSkipsExecution(t *testing.T) {
	f := newWorkflowFixture()
	scriptResponses(f, prompts.IntentChitchat, "Hello! Ask me about your data.", "")

	state, err := f.workflow.Run(context.Background(),
		newRunState(uuid.New(), "hi there"), newTestTracker())

	require.NoError(t, err)
	assert.Equal(t, prompts.IntentChitchat, state.Intent)
	assert.Equal(t, "Hello! Ask me about your data.", state.Response)
	assert.Equal(t, models.StatusSuccess, state.ExecutionStatus)

	// No database work for conversational turns.
	assert.Empty(t, state.SQL)
	assert.Equal(t, 0, f.connectionRepo.GetByIDCalls)
	assert.Empty(t, f.sqlResultRepo.Created)
	assert.Empty(t, f.vizRepo.Created)

	// The transcript carries the user turn and the reply.
	require.Len(t, state.SimpleMessages, 2)
	assert.Equal(t, llm.RoleUser, state.SimpleMessages[0].Role)
	assert.Equal(t, llm.RoleAssistant, state.SimpleMessages[1].Role)
}

func TestRun_ChitchatFallbackOnLLMFailure(t *testing.T) {
	f := newWorkflowFixture()
	f.factory.MockClient.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (*llm.GenerateResponseResult, error) {
		if temp == 0.1 {
			return &llm.GenerateResponseResult{Content: `{"intent": "chitchat", "confidence": 0.9}`}, nil
		}
		return nil, errors.New("model unavailable")
	}

	state, err := f.workflow.Run(context.Background(),
		newRunState(uuid.New(), "hello"), newTestTracker())

	require.NoError(t, err)
	assert.Equal(t, prompts.ChitchatFallbackReply, state.Response)
	assert.Equal(t, models.StatusSuccess, state.ExecutionStatus)
}

func TestRun_QuickMetricSkipsGraphAnalysis(t *testing.T) {
	f := newWorkflowFixture()
	scriptResponses(f, prompts.IntentQuickMetric, "", "")

	conn := sqliteConnection()
	f.connectionRepo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
		return conn, nil
	}
	f.factory.MockStreamer.Events = []llm.StreamEvent{
		{Type: llm.StreamEventToolCall, Data: llm.ToolCall{
			ID:       "call_1",
			Type:     "function",
			Function: llm.ToolCallFunc{Name: llm.SQLQueryToolName, Arguments: `{"sql": "SELECT 1 AS metric"}`},
		}},
		{Type: llm.StreamEventText, Content: "The metric is 1."},
		{Type: llm.StreamEventDone},
	}

	state, err := f.workflow.Run(context.Background(),
		newRunState(conn.ID, "how many users do we have?"), newTestTracker())

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, state.ExecutionStatus)
	assert.Equal(t, "SELECT 1 AS metric", state.SQL)
	assert.Equal(t, "The metric is 1.", state.Response)

	require.Len(t, state.Rows, 1)
	require.Len(t, f.sqlResultRepo.Created, 1)
	require.NotNil(t, state.SqlResultID)

	// Quick metrics never reach the graph analyzer, rows or not.
	assert.Empty(t, f.vizRepo.Created)
	assert.Equal(t, 2, f.factory.MockClient.GenerateResponseCalls, "only topic and intent completions expected")
}

func TestRun_OnlyLastIterationTextBecomesResponse(t *testing.T) {
	f := newWorkflowFixture()
	scriptResponses(f, prompts.IntentQuickMetric, "", "")

	conn := sqliteConnection()
	f.connectionRepo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
		return conn, nil
	}
	f.factory.MockStreamer.Events = []llm.StreamEvent{
		{Type: llm.StreamEventText, Content: "Let me query the database."},
		{Type: llm.StreamEventToolCall, Data: llm.ToolCall{
			ID:       "call_1",
			Type:     "function",
			Function: llm.ToolCallFunc{Name: llm.SQLQueryToolName, Arguments: `{"sql": "SELECT 42 AS orders"}`},
		}},
		{Type: llm.StreamEventText, Content: "There are 42 orders."},
		{Type: llm.StreamEventDone},
	}

	state, err := f.workflow.Run(context.Background(),
		newRunState(conn.ID, "how many orders are there?"), newTestTracker())

	require.NoError(t, err)
	// Commentary streamed before the tool call must not leak into the
	// persisted answer.
	assert.Equal(t, "There are 42 orders.", state.Response)
}

func TestRun_ReportWithRowsReachesGraphAnalysis(t *testing.T) {
	f := newWorkflowFixture()
	scriptResponses(f, prompts.IntentReport, "",
		`{"shouldVisualize": false, "reasoning": "A two-value comparison reads fine as text.", "graphs": []}`)

	conn := sqliteConnection()
	f.connectionRepo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
		return conn, nil
	}
	f.factory.MockStreamer.Events = []llm.StreamEvent{
		{Type: llm.StreamEventToolCall, Data: llm.ToolCall{
			ID:       "call_1",
			Type:     "function",
			Function: llm.ToolCallFunc{Name: llm.SQLQueryToolName, Arguments: `{"sql": "SELECT 1 AS n UNION ALL SELECT 2"}`},
		}},
		{Type: llm.StreamEventText, Content: "Here is the breakdown."},
		{Type: llm.StreamEventDone},
	}

	state, err := f.workflow.Run(context.Background(),
		newRunState(conn.ID, "break down signups by plan"), newTestTracker())

	require.NoError(t, err)
	assert.Len(t, state.Rows, 2)
	assert.False(t, state.ShouldVisualize)
	// Topic, intent, and graph analysis completions.
	assert.Equal(t, 3, f.factory.MockClient.GenerateResponseCalls)
}

func TestRun_MissingConnectionFailsNodeNotWorkflow(t *testing.T) {
	f := newWorkflowFixture()
	scriptResponses(f, prompts.IntentFact, "", "")

	state, err := f.workflow.Run(context.Background(),
		newRunState(uuid.New(), "how many orders"), newTestTracker())

	require.NoError(t, err, "node failures fold into state")
	assert.Equal(t, models.StatusFailed, state.ExecutionStatus)
	assert.Contains(t, state.ErrorMessage, "failed to resolve connection")
	assert.NotEmpty(t, state.Errors)
}

func TestRun_InactiveConnectionFails(t *testing.T) {
	f := newWorkflowFixture()
	scriptResponses(f, prompts.IntentFact, "", "")

	conn := sqliteConnection()
	conn.Active = false
	f.connectionRepo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
		return conn, nil
	}

	state, err := f.workflow.Run(context.Background(),
		newRunState(conn.ID, "how many orders"), newTestTracker())

	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, state.ExecutionStatus)
	assert.Contains(t, state.ErrorMessage, apperrors.ErrConnectionInactive.Error())
}

func TestRun_IntentFailureDegradesToUnknown(t *testing.T) {
	f := newWorkflowFixture()
	f.factory.MockClient.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (*llm.GenerateResponseResult, error) {
		if temp == 0.1 {
			return &llm.GenerateResponseResult{Content: "not json at all"}, nil
		}
		return &llm.GenerateResponseResult{Content: "Test Conversation"}, nil
	}

	conn := sqliteConnection()
	f.connectionRepo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
		return conn, nil
	}
	f.factory.MockStreamer.Events = []llm.StreamEvent{
		{Type: llm.StreamEventText, Content: "I could not find anything."},
		{Type: llm.StreamEventDone},
	}

	state, err := f.workflow.Run(context.Background(),
		newRunState(conn.ID, "???"), newTestTracker())

	require.NoError(t, err)
	assert.Equal(t, prompts.IntentUnknown, state.Intent)
	assert.Equal(t, 0.3, state.IntentConfidence)
	// Unknown intent still executes against the database path.
	assert.Equal(t, 1, f.connectionRepo.GetByIDCalls)
}

func TestRun_SavesCheckpoint(t *testing.T) {
	checkpointer := &mockCheckpointer{}
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
		f.examples, f.factory,
		func() (Checkpointer, error) { return checkpointer, nil },
		zap.NewNop())
	scriptResponses(f, prompts.IntentChitchat, "Hi!", "")

	state, err := f.workflow.Run(context.Background(),
		newRunState(uuid.New(), "hello"), newTestTracker())

	require.NoError(t, err)
	require.Len(t, checkpointer.Saved, 1)
	assert.Equal(t, state.ThreadID, checkpointer.Saved[0].ThreadID)
}

func TestRun_CheckpointInitFailure(t *testing.T) {
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
		f.examples, f.factory,
		func() (Checkpointer, error) { return nil, errors.New("store offline") },
		zap.NewNop())

	_, err := f.workflow.Run(context.Background(),
		newRunState(uuid.New(), "hello"), newTestTracker())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint store initialization failed")
}
