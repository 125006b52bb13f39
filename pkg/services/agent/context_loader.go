package agent

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/prompts"
	"github.com/querypilot/querypilot-engine/pkg/services/progress"
)

// loadContext is the entry node. It appends the user query to the
// conversation and, on a thread's first interaction, synthesizes a short
// topic label. Topic generation failure is recoverable.
func (w *Workflow) loadContext(ctx context.Context, state *AgentState, tracker *progress.Tracker) *AgentState {
	now := time.Now()
	delta := &AgentState{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: state.Query},
		},
		SimpleMessages: []models.SimpleMessage{
			{Role: llm.RoleUser, Content: state.Query, Step: progress.StepContextLoader, Timestamp: now},
		},
	}

	tracker.Advance(ctx, progress.StepContextLoader, "Loading conversation context")

	if state.Topic == "" {
		topic, err := w.generateTopic(ctx, state)
		if err != nil {
			w.logger.Warn("topic generation failed",
				zap.String("thread_id", state.ThreadID.String()),
				zap.Error(err))
			delta.Errors = append(delta.Errors, "topic generation failed: "+err.Error())
		} else {
			delta.Topic = topic
			delta.TopicGenerated = true
		}
		tracker.Advance(ctx, progress.StepTopicGenerator, "Naming this conversation")
	}

	return delta
}

func (w *Workflow) generateTopic(ctx context.Context, state *AgentState) (string, error) {
	client, err := w.llmFactory.CreateClient(state.LLMProvider)
	if err != nil {
		return "", err
	}

	result, err := client.GenerateResponse(ctx, prompts.BuildTopicPrompt(state.Query), "", 0.3)
	if err != nil {
		return "", err
	}

	topic := strings.TrimSpace(strings.Trim(strings.TrimSpace(result.Content), `"`))
	words := strings.Fields(topic)
	if len(words) > 6 {
		topic = strings.Join(words[:6], " ")
	}
	return topic, nil
}
