// Package agent runs the query workflow: a fixed state machine of nodes
// that classify intent, drive the SQL generation loop, analyze results for
// charts, and assemble the final response.
package agent

import (
	"time"

	"github.com/google/uuid"

	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// AgentState is the shared state threaded through workflow nodes. Nodes
// return partial states which are merged via Merge; scalar fields are
// last-write-wins, list fields concatenate (messages deduplicate).
type AgentState struct {
	ThreadID      uuid.UUID `json:"thread_id"`
	InteractionID uuid.UUID `json:"interaction_id"`
	ConnectionID  uuid.UUID `json:"connection_id"`

	Query       string `json:"query"`
	LLMProvider string `json:"llm_provider,omitempty"`
	Locale      string `json:"locale,omitempty"`
	Timezone    string `json:"timezone,omitempty"`

	Topic            string  `json:"topic,omitempty"`
	TopicGenerated   bool    `json:"topic_generated,omitempty"`
	Intent           string  `json:"intent,omitempty"`
	IntentConfidence float64 `json:"intent_confidence,omitempty"`

	SQL             string                 `json:"sql,omitempty"`
	Rows            []map[string]any       `json:"rows,omitempty"`
	ExecutionStatus models.ExecutionStatus `json:"execution_status,omitempty"`
	Response        string                 `json:"response,omitempty"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	DurationMs      int64                  `json:"duration_ms,omitempty"`

	SqlResultID     *uuid.UUID `json:"sql_result_id,omitempty"`
	VisualizationID *uuid.UUID `json:"visualization_id,omitempty"`

	ShouldVisualize bool               `json:"should_visualize,omitempty"`
	Graphs          []models.GraphSpec `json:"graphs,omitempty"`

	UsedExampleIDs []uuid.UUID `json:"used_example_ids,omitempty"`

	Messages       []llm.Message          `json:"messages,omitempty"`
	SimpleMessages []models.SimpleMessage `json:"simple_messages,omitempty"`
	Errors         []string               `json:"errors,omitempty"`
}

// Merge folds a node's partial state into the accumulated state and returns
// the result. Scalars take the delta's value when set; error lists
// concatenate; message lists concatenate then deduplicate.
func Merge(base, delta *AgentState) *AgentState {
	if delta == nil {
		return base
	}
	merged := *base

	if delta.Topic != "" {
		merged.Topic = delta.Topic
	}
	if delta.TopicGenerated {
		merged.TopicGenerated = true
	}
	if delta.Intent != "" {
		merged.Intent = delta.Intent
	}
	if delta.IntentConfidence != 0 {
		merged.IntentConfidence = delta.IntentConfidence
	}
	if delta.SQL != "" {
		merged.SQL = delta.SQL
	}
	if delta.Rows != nil {
		merged.Rows = delta.Rows
	}
	if delta.ExecutionStatus != "" {
		merged.ExecutionStatus = delta.ExecutionStatus
	}
	if delta.Response != "" {
		merged.Response = delta.Response
	}
	if delta.ErrorMessage != "" {
		merged.ErrorMessage = delta.ErrorMessage
	}
	if delta.DurationMs != 0 {
		merged.DurationMs = delta.DurationMs
	}
	if delta.SqlResultID != nil {
		merged.SqlResultID = delta.SqlResultID
	}
	if delta.VisualizationID != nil {
		merged.VisualizationID = delta.VisualizationID
	}
	if delta.ShouldVisualize {
		merged.ShouldVisualize = true
	}
	if delta.Graphs != nil {
		merged.Graphs = delta.Graphs
	}
	if delta.UsedExampleIDs != nil {
		merged.UsedExampleIDs = delta.UsedExampleIDs
	}

	merged.Errors = append(append([]string{}, base.Errors...), delta.Errors...)
	merged.Messages = append(append([]llm.Message{}, base.Messages...), delta.Messages...)
	merged.SimpleMessages = dedupeSimpleMessages(
		append(append([]models.SimpleMessage{}, base.SimpleMessages...), delta.SimpleMessages...))

	return &merged
}

// dedupeSimpleMessages drops repeats by a composite key of role, content,
// and timestamp. Zero or far-future timestamps are normalized before key
// construction so malformed entries still collapse.
func dedupeSimpleMessages(messages []models.SimpleMessage) []models.SimpleMessage {
	seen := make(map[string]struct{}, len(messages))
	result := make([]models.SimpleMessage, 0, len(messages))
	for _, msg := range messages {
		key := msg.Role + "\x00" + msg.Content + "\x00" + normalizeTimestamp(msg.Timestamp)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, msg)
	}
	return result
}

func normalizeTimestamp(t time.Time) string {
	if t.IsZero() || t.Year() > 9999 || t.Year() < 0 {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
