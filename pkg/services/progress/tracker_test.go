package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) all() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func TestTrackerStageAdvancement(t *testing.T) {
	pub := &capturePublisher{}
	tracker := NewTracker(uuid.New(), pub, zap.NewNop())
	ctx := context.Background()

	tracker.Advance(ctx, StepContextLoader, "loading context")
	tracker.Advance(ctx, StepTopicGenerator, "topic generated")
	tracker.Advance(ctx, StepIntentClassifier, "intent classified")

	events := pub.all()
	require.Len(t, events, 3)
	assert.Equal(t, 8.0, events[0].Percentage)
	assert.Equal(t, 16.0, events[1].Percentage)
	assert.Equal(t, 25.0, events[2].Percentage)
	assert.Equal(t, "[contextLoader] loading context", events[0].Message)
}

func TestTrackerExecutorPoolGeometric(t *testing.T) {
	pub := &capturePublisher{}
	tracker := NewTracker(uuid.New(), pub, zap.NewNop())
	ctx := context.Background()

	tracker.AdvanceIteration(ctx, "iteration 1")
	tracker.AdvanceIteration(ctx, "iteration 2")
	tracker.AdvanceIteration(ctx, "iteration 3")

	events := pub.all()
	require.Len(t, events, 3)
	assert.Equal(t, 10.0, events[0].Percentage)
	assert.Equal(t, 18.0, events[1].Percentage)
	assert.Equal(t, 24.4, events[2].Percentage)
}

func TestTrackerIterationsNeverExhaustPool(t *testing.T) {
	pub := &capturePublisher{}
	tracker := NewTracker(uuid.New(), pub, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		tracker.AdvanceIteration(ctx, "iterating")
	}

	assert.Less(t, tracker.Percentage(), 50.0)
}

func TestTrackerMonotonicAndClamped(t *testing.T) {
	pub := &capturePublisher{}
	tracker := NewTracker(uuid.New(), pub, zap.NewNop())
	ctx := context.Background()

	tracker.Advance(ctx, StepContextLoader, "a")
	tracker.Advance(ctx, StepTopicGenerator, "b")
	tracker.Advance(ctx, StepIntentClassifier, "c")
	for i := 0; i < 5; i++ {
		tracker.AdvanceIteration(ctx, "loop")
	}
	tracker.Advance(ctx, StepExecutor, "executor done")
	tracker.Advance(ctx, StepGraphAnalyzer, "graphs")
	tracker.Advance(ctx, StepPostProcessor, "post")
	tracker.Complete(ctx, "done")

	events := pub.all()
	prev := 0.0
	for _, event := range events {
		assert.GreaterOrEqual(t, event.Percentage, prev)
		assert.LessOrEqual(t, event.Percentage, 100.0)
		prev = event.Percentage
	}

	// Executor completion closes out the remaining pool exactly.
	assert.Equal(t, 75.0, events[8].Percentage)

	last := events[len(events)-1]
	assert.Equal(t, StepCompleted, last.Step)
	assert.Equal(t, 100.0, last.Percentage)
	assert.Equal(t, "success", last.State)
}

func TestTrackerPublishFailureSwallowed(t *testing.T) {
	pub := &capturePublisher{err: errors.New("redis down")}
	tracker := NewTracker(uuid.New(), pub, zap.NewNop())

	tracker.Advance(context.Background(), StepContextLoader, "loading")

	assert.Equal(t, 8.0, tracker.Percentage())
}

func TestTrackerNilPublisherDefaultsToNop(t *testing.T) {
	tracker := NewTracker(uuid.New(), nil, zap.NewNop())
	tracker.Advance(context.Background(), StepContextLoader, "loading")
	assert.Equal(t, 8.0, tracker.Percentage())
}
