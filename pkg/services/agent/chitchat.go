package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/prompts"
	"github.com/querypilot/querypilot-engine/pkg/services/progress"
)

// handleChitchat answers conversational turns without touching the
// database. It never fails the interaction; an LLM error falls back to a
// canned reply with status success.
func (w *Workflow) handleChitchat(ctx context.Context, state *AgentState, tracker *progress.Tracker) *AgentState {
	reply, err := w.generateChitchatReply(ctx, state)
	if err != nil {
		w.logger.Warn("chitchat generation failed, using fallback",
			zap.String("thread_id", state.ThreadID.String()),
			zap.Error(err))
		reply = prompts.ChitchatFallbackReply
	}

	tracker.Advance(ctx, progress.StepExecutor, "Writing a reply")

	now := time.Now()
	return &AgentState{
		Response:        reply,
		ExecutionStatus: models.StatusSuccess,
		Messages: []llm.Message{
			{Role: llm.RoleAssistant, Content: reply},
		},
		SimpleMessages: []models.SimpleMessage{
			{Role: llm.RoleAssistant, Content: reply, Step: progress.StepExecutor, Timestamp: now},
		},
	}
}

func (w *Workflow) generateChitchatReply(ctx context.Context, state *AgentState) (string, error) {
	client, err := w.llmFactory.CreateClient(state.LLMProvider)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, msg := range state.SimpleMessages {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	result, err := client.GenerateResponse(ctx, b.String(), prompts.ChitchatSystemPrompt, 0.7)
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(result.Content)
	if reply == "" {
		return "", errors.New("empty chitchat reply")
	}
	return reply, nil
}
