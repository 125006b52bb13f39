package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/prompts"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
	"github.com/querypilot/querypilot-engine/pkg/services/progress"
)

// ExampleSource supplies few-shot examples for the SQL agent prompt.
type ExampleSource interface {
	FindSimilar(ctx context.Context, query string, limit int, threshold float64) ([]models.RankedExample, error)
}

// CheckpointerInit constructs the checkpoint store. Runs asynchronously
// after workflow construction; nil disables checkpointing.
type CheckpointerInit func() (Checkpointer, error)

const checkpointInitWait = 100 * time.Millisecond
const checkpointInitAttempts = 50

// Workflow is the compiled query state machine. One instance serves all
// interactions; per-run state lives in AgentState and the progress tracker.
type Workflow struct {
	connectionRepo  repositories.ConnectionRepository
	interactionRepo repositories.InteractionRepository
	sqlResultRepo   repositories.SqlResultRepository
	vizRepo         repositories.VisualizationRepository
	examples        ExampleSource
	llmFactory      llm.LLMClientFactory
	logger          *zap.Logger

	ready        chan struct{}
	checkpointer Checkpointer
	initErr      error
}

// NewWorkflow creates the workflow and kicks off checkpoint store
// initialization in the background. Callers must not invoke Run before
// initialization completes; Run blocks on it with a bounded wait.
func NewWorkflow(
	connectionRepo repositories.ConnectionRepository,
	interactionRepo repositories.InteractionRepository,
	sqlResultRepo repositories.SqlResultRepository,
	vizRepo repositories.VisualizationRepository,
	examples ExampleSource,
	llmFactory llm.LLMClientFactory,
	checkpointerInit CheckpointerInit,
	logger *zap.Logger,
) *Workflow {
	w := &Workflow{
		connectionRepo:  connectionRepo,
		interactionRepo: interactionRepo,
		sqlResultRepo:   sqlResultRepo,
		vizRepo:         vizRepo,
		examples:        examples,
		llmFactory:      llmFactory,
		logger:          logger.Named("workflow"),
		ready:           make(chan struct{}),
	}

	go func() {
		defer close(w.ready)
		if checkpointerInit == nil {
			return
		}
		checkpointer, err := checkpointerInit()
		if err != nil {
			w.initErr = err
			return
		}
		w.checkpointer = checkpointer
	}()

	return w
}

// awaitReady blocks until checkpoint initialization finished, bounded to
// checkpointInitAttempts polls. A timeout is an explicit failure rather
// than a run against a half-initialized graph.
func (w *Workflow) awaitReady(ctx context.Context) error {
	for attempt := 0; attempt < checkpointInitAttempts; attempt++ {
		select {
		case <-w.ready:
			if w.initErr != nil {
				return fmt.Errorf("checkpoint store initialization failed: %w", w.initErr)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(checkpointInitWait):
		}
	}
	return fmt.Errorf("%w: checkpoint store initialization timed out", apperrors.ErrWorkflowNotReady)
}

// Run executes the state machine for one interaction. Node failures are
// folded into state rather than escaping; Run itself only fails for
// infrastructure problems (initialization timeout, cancelled context).
func (w *Workflow) Run(ctx context.Context, initial *AgentState, tracker *progress.Tracker) (*AgentState, error) {
	if err := w.awaitReady(ctx); err != nil {
		return nil, err
	}

	state := initial
	state = Merge(state, w.loadContext(ctx, state, tracker))
	state = Merge(state, w.classifyIntent(ctx, state, tracker))

	if state.Intent == prompts.IntentChitchat {
		state = Merge(state, w.handleChitchat(ctx, state, tracker))
	} else {
		state = Merge(state, w.execute(ctx, state, tracker))
		if state.Intent != prompts.IntentQuickMetric && len(state.Rows) > 0 {
			state = Merge(state, w.analyzeGraphs(ctx, state, tracker))
		}
	}

	state = Merge(state, w.postProcess(ctx, state, tracker))

	if w.checkpointer != nil {
		if err := w.checkpointer.Save(ctx, state.ThreadID, state); err != nil {
			w.logger.Warn("checkpoint save failed",
				zap.String("thread_id", state.ThreadID.String()),
				zap.Error(err))
		}
	}

	return state, nil
}

// postProcess is the terminal pass-through node. State shape is already
// final; it only reports the stage.
func (w *Workflow) postProcess(ctx context.Context, state *AgentState, tracker *progress.Tracker) *AgentState {
	tracker.Advance(ctx, progress.StepPostProcessor, "Finalizing response")
	return nil
}
