package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/datasource"
	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/prompts"
	"github.com/querypilot/querypilot-engine/pkg/services/progress"
	"github.com/querypilot/querypilot-engine/pkg/services/retrieval"
)

// execute resolves the target connection and drives the tool-using SQL
// generation loop. Node failures set execution_status=failed but never
// escape; the workflow continues so partial transcripts are delivered.
func (w *Workflow) execute(ctx context.Context, state *AgentState, tracker *progress.Tracker) *AgentState {
	start := time.Now()
	delta := &AgentState{}

	fail := func(msg string) *AgentState {
		elapsed := time.Since(start).Milliseconds()
		delta.ExecutionStatus = models.StatusFailed
		delta.ErrorMessage = msg
		delta.DurationMs = elapsed
		delta.Errors = append(delta.Errors, msg)
		w.logger.Warn("executor node failed",
			zap.String("thread_id", state.ThreadID.String()),
			zap.String("error", msg))
		return delta
	}

	conn, err := w.connectionRepo.GetByID(ctx, state.ConnectionID)
	if err != nil {
		return fail("failed to resolve connection: " + err.Error())
	}
	if !conn.Active {
		return fail(fmt.Sprintf("%s: %s", apperrors.ErrConnectionInactive, conn.Name))
	}

	queryExecutor, err := datasource.NewQueryExecutor(ctx, conn)
	if err != nil {
		return fail("failed to connect to target database: " + err.Error())
	}
	defer queryExecutor.Close()

	// Examples are prompt context only; retrieval failure never blocks
	// execution.
	examples, err := w.examples.FindSimilar(ctx, state.Query, retrieval.DefaultLimit, retrieval.PromptThreshold)
	if err != nil {
		w.logger.Warn("example retrieval failed",
			zap.String("thread_id", state.ThreadID.String()),
			zap.Error(err))
		delta.Errors = append(delta.Errors, "example retrieval failed: "+err.Error())
		examples = nil
	}
	for _, example := range examples {
		delta.UsedExampleIDs = append(delta.UsedExampleIDs, example.ID)
	}

	history := w.loadHistory(ctx, state)

	systemPrompt := prompts.BuildSQLAgentSystemPrompt(
		conn.Type, conn.Database, examples, history, state.Locale, state.Timezone)

	streamer, err := w.llmFactory.CreateToolStreamer(state.LLMProvider)
	if err != nil {
		return fail("failed to create LLM client: " + err.Error())
	}

	loop := &executionLoop{
		tracker: tracker,
		logger:  w.logger,
	}
	streamErr := loop.run(ctx, streamer, &llm.StreamingRequest{
		Messages:     append([]llm.Message{}, state.Messages...),
		Tools:        llm.GetSQLAgentTools(),
		Temperature:  0.2,
		SystemPrompt: systemPrompt,
	}, newSQLToolExecutor(queryExecutor, w.logger))

	delta.SQL = loop.sql
	delta.SimpleMessages = append(delta.SimpleMessages, loop.transcript...)

	if streamErr != nil {
		return fail("SQL generation loop failed: " + streamErr.Error())
	}

	elapsed := time.Since(start).Milliseconds()
	delta.DurationMs = elapsed

	if len(loop.rows) > 0 {
		sqlResult := &models.SqlResult{
			InteractionID: state.InteractionID,
			SQL:           loop.sql,
			Rows:          loop.rows,
			Status:        models.StatusSuccess,
			DurationMs:    &elapsed,
		}
		if err := w.sqlResultRepo.Create(ctx, sqlResult); err != nil {
			return fail("failed to persist query result: " + err.Error())
		}
		if err := w.interactionRepo.SetSqlResultID(ctx, state.InteractionID, sqlResult.ID); err != nil {
			return fail("failed to link query result: " + err.Error())
		}
		delta.SqlResultID = &sqlResult.ID
		delta.Rows = loop.rows
	}

	response := strings.TrimSpace(loop.response)
	delta.Response = response
	delta.ExecutionStatus = models.StatusSuccess
	if response != "" {
		now := time.Now()
		delta.Messages = append(delta.Messages, llm.Message{Role: llm.RoleAssistant, Content: response})
		delta.SimpleMessages = append(delta.SimpleMessages, models.SimpleMessage{
			Role: llm.RoleAssistant, Content: response, Step: progress.StepExecutor, Timestamp: now,
		})
	}

	tracker.Advance(ctx, progress.StepExecutor, "Query execution complete")
	return delta
}

// loadHistory re-reads prior interactions from storage for prompt
// construction. Under concurrent queries on one thread this read can race
// with writers; a known limitation.
func (w *Workflow) loadHistory(ctx context.Context, state *AgentState) []prompts.ConversationTurn {
	interactions, err := w.interactionRepo.ListByThread(ctx, state.ThreadID)
	if err != nil {
		w.logger.Warn("failed to load conversation history",
			zap.String("thread_id", state.ThreadID.String()),
			zap.Error(err))
		return nil
	}

	turns := make([]prompts.ConversationTurn, 0, len(interactions))
	for _, interaction := range interactions {
		if interaction.ID == state.InteractionID {
			continue
		}
		turn := prompts.ConversationTurn{
			Question: interaction.Query,
			Response: interaction.Response,
		}
		if interaction.SqlResultID != nil {
			if sqlResult, err := w.sqlResultRepo.GetByID(ctx, *interaction.SqlResultID); err == nil {
				turn.SQL = sqlResult.SQL
			}
		}
		turns = append(turns, turn)
	}
	return turns
}

// executionLoop consumes the tool-use event stream and accumulates the
// running response, candidate SQL, captured rows, and transcript.
type executionLoop struct {
	tracker *progress.Tracker
	logger  *zap.Logger

	response   string
	sql        string
	rows       []map[string]any
	transcript []models.SimpleMessage
}

func (l *executionLoop) run(ctx context.Context, streamer llm.ToolStreamer, req *llm.StreamingRequest, executor llm.ToolExecutor) error {
	events := make(chan llm.StreamEvent, 64)
	var streamErr error
	go func() {
		defer close(events)
		streamErr = streamer.StreamWithTools(ctx, req, executor, events)
	}()

	var textBuilder strings.Builder
	for event := range events {
		switch event.Type {
		case llm.StreamEventText:
			textBuilder.WriteString(event.Content)
			l.response = textBuilder.String()

		case llm.StreamEventToolCall:
			// A tool call starts a new iteration. Text streamed before
			// it is interim commentary; only the latest iteration's
			// text survives as the response.
			textBuilder.Reset()
			l.handleToolCall(ctx, event)

		case llm.StreamEventToolResult:
			l.handleToolResult(event)

		case llm.StreamEventDone, llm.StreamEventError:
			// error surfaces through streamErr
		}
	}

	return streamErr
}

func (l *executionLoop) handleToolCall(ctx context.Context, event llm.StreamEvent) {
	toolCall, ok := event.Data.(llm.ToolCall)
	if !ok {
		return
	}

	now := time.Now()
	l.transcript = append(l.transcript, models.SimpleMessage{
		Role:      llm.RoleAssistant,
		Content:   fmt.Sprintf("Calling %s: %s", toolCall.Function.Name, toolCall.Function.Arguments),
		Step:      progress.StepExecutor,
		Timestamp: now,
	})

	if toolCall.Function.Name != llm.SQLQueryToolName {
		return
	}

	l.tracker.AdvanceIteration(ctx, "Running a SQL query")

	var args sqlToolArgs
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
		l.logger.Debug("unparseable tool call arguments", zap.Error(err))
		return
	}
	if strings.TrimSpace(args.SQL) != "" {
		l.sql = args.SQL
	}
}

// handleToolResult parses a completed SQL tool result. An existing
// non-empty row set is only replaced by a non-empty parse, so a later
// failed tool call cannot erase a good result within the same loop.
func (l *executionLoop) handleToolResult(event llm.StreamEvent) {
	now := time.Now()
	l.transcript = append(l.transcript, models.SimpleMessage{
		Role:      llm.RoleTool,
		Content:   event.Content,
		Step:      progress.StepExecutor,
		Timestamp: now,
	})

	var result datasource.QueryExecutionResult
	if err := json.Unmarshal([]byte(event.Content), &result); err != nil {
		return
	}
	if l.rows == nil || len(result.Rows) > 0 {
		l.rows = result.Rows
	}
}
