package progress

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline step names, matching workflow node identifiers.
const (
	StepContextLoader    = "contextLoader"
	StepTopicGenerator   = "topicGenerator"
	StepIntentClassifier = "intentClassifier"
	StepExecutor         = "executor"
	StepGraphAnalyzer    = "graphAnalyzer"
	StepPostProcessor    = "postProcessor"
	StepCompleted        = "completed"
)

// Percentage budget per stage. The executor pool is consumed geometrically
// by loop iterations instead of all at once.
var stepWeights = map[string]float64{
	StepContextLoader:    8,
	StepTopicGenerator:   8,
	StepIntentClassifier: 9,
	StepExecutor:         50,
	StepGraphAnalyzer:    15,
	StepPostProcessor:    10,
}

const executorIterationShare = 0.2

// Tracker accumulates progress for one interaction. Create one per run and
// discard it afterwards. Percentage is monotonically non-decreasing, clamped
// to 100, and rounded to two decimals before publishing. Publish failures
// are logged and swallowed.
type Tracker struct {
	mu sync.Mutex

	threadID  uuid.UUID
	publisher Publisher
	logger    *zap.Logger

	percentage        float64
	executorRemaining float64
}

// NewTracker creates a per-interaction progress tracker.
func NewTracker(threadID uuid.UUID, publisher Publisher, logger *zap.Logger) *Tracker {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Tracker{
		threadID:          threadID,
		publisher:         publisher,
		logger:            logger.Named("progress"),
		executorRemaining: stepWeights[StepExecutor],
	}
}

// Advance marks a pipeline stage done, consuming its full weight.
func (t *Tracker) Advance(ctx context.Context, step, message string) {
	t.AdvanceWithState(ctx, step, message, "")
}

// AdvanceWithState is Advance with an explicit state annotation on the
// published event. Completing the executor stage consumes whatever is left
// of its pool rather than its full weight, since iterations already took
// their share.
func (t *Tracker) AdvanceWithState(ctx context.Context, step, message, state string) {
	t.mu.Lock()
	delta := stepWeights[step]
	if step == StepExecutor {
		delta = t.executorRemaining
		t.executorRemaining = 0
	}
	t.percentage = clamp(t.percentage + delta)
	pct := t.percentage
	t.mu.Unlock()

	t.publish(ctx, step, message, state, pct)
}

// AdvanceIteration reports one tool-use loop iteration, consuming 20% of
// whatever remains of the executor pool. The pool is approached
// asymptotically and never exhausted by iterations alone.
func (t *Tracker) AdvanceIteration(ctx context.Context, message string) {
	t.mu.Lock()
	increment := t.executorRemaining * executorIterationShare
	t.executorRemaining -= increment
	t.percentage = clamp(t.percentage + increment)
	pct := t.percentage
	t.mu.Unlock()

	t.publish(ctx, StepExecutor, message, "", pct)
}

// Complete publishes the terminal event at 100.
func (t *Tracker) Complete(ctx context.Context, message string) {
	t.mu.Lock()
	t.percentage = 100
	t.mu.Unlock()

	t.publish(ctx, StepCompleted, message, "success", 100)
}

// Percentage returns the current accumulated value, rounded as published.
func (t *Tracker) Percentage() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return round2(t.percentage)
}

func (t *Tracker) publish(ctx context.Context, step, message, state string, pct float64) {
	event := Event{
		ThreadID:   t.threadID,
		Step:       step,
		Message:    fmt.Sprintf("[%s] %s", step, message),
		Percentage: round2(pct),
		State:      state,
	}
	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.Warn("progress publish failed",
			zap.String("thread_id", t.threadID.String()),
			zap.String("step", step),
			zap.Error(err))
	}
}

func clamp(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
