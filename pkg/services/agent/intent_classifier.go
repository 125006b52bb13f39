package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/prompts"
	"github.com/querypilot/querypilot-engine/pkg/services/progress"
)

type intentResult struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// classifyIntent labels the query. Any failure degrades to unknown with
// low confidence and a recoverable error note; the workflow proceeds.
func (w *Workflow) classifyIntent(ctx context.Context, state *AgentState, tracker *progress.Tracker) *AgentState {
	delta := &AgentState{}

	result, err := w.runClassification(ctx, state)
	if err != nil {
		w.logger.Warn("intent classification failed",
			zap.String("thread_id", state.ThreadID.String()),
			zap.Error(err))
		delta.Intent = prompts.IntentUnknown
		delta.IntentConfidence = 0.3
		delta.Errors = append(delta.Errors, "intent classification failed: "+err.Error())
	} else {
		delta.Intent = result.Intent
		delta.IntentConfidence = result.Confidence
	}

	tracker.Advance(ctx, progress.StepIntentClassifier,
		fmt.Sprintf("Understood the question as %s", delta.Intent))
	return delta
}

func (w *Workflow) runClassification(ctx context.Context, state *AgentState) (*intentResult, error) {
	client, err := w.llmFactory.CreateClient(state.LLMProvider)
	if err != nil {
		return nil, err
	}

	prompt := prompts.BuildIntentClassificationPrompt(state.Query, conversationContext(state))
	response, err := client.GenerateResponse(ctx, prompt, "", 0.1)
	if err != nil {
		return nil, err
	}

	result, err := llm.ParseJSONResponse[intentResult](response.Content)
	if err != nil {
		return nil, err
	}

	switch result.Intent {
	case prompts.IntentFact, prompts.IntentQuickMetric, prompts.IntentReport,
		prompts.IntentChitchat, prompts.IntentUnknown:
	default:
		return nil, fmt.Errorf("unrecognized intent %q", result.Intent)
	}
	return &result, nil
}

// conversationContext renders the simplified transcript for prompt use,
// excluding the current turn's entry.
func conversationContext(state *AgentState) string {
	if len(state.SimpleMessages) <= 1 {
		return ""
	}
	var b strings.Builder
	for _, msg := range state.SimpleMessages[:len(state.SimpleMessages)-1] {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}
