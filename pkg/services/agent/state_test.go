package agent

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

func TestMerge_NilDeltaReturnsBase(t *testing.T) {
	base := &AgentState{Query: "how many users signed up"}

	merged := Merge(base, nil)

	assert.Same(t, base, merged)
}

func TestMerge_ScalarsLastWriteWins(t *testing.T) {
	base := &AgentState{
		Intent:          "fact",
		SQL:             "SELECT 1",
		Response:        "old answer",
		ExecutionStatus: models.StatusPending,
	}
	delta := &AgentState{
		Intent:          "report",
		Response:        "new answer",
		ExecutionStatus: models.StatusSuccess,
	}

	merged := Merge(base, delta)

	assert.Equal(t, "report", merged.Intent)
	assert.Equal(t, "new answer", merged.Response)
	assert.Equal(t, models.StatusSuccess, merged.ExecutionStatus)
	// Unset delta fields keep the base value.
	assert.Equal(t, "SELECT 1", merged.SQL)
}

func TestMerge_ZeroScalarsDoNotOverwrite(t *testing.T) {
	resultID := uuid.New()
	base := &AgentState{
		Topic:            "Signups by month",
		TopicGenerated:   true,
		IntentConfidence: 0.9,
		DurationMs:       1200,
		SqlResultID:      &resultID,
		ShouldVisualize:  true,
	}

	merged := Merge(base, &AgentState{})

	assert.Equal(t, "Signups by month", merged.Topic)
	assert.True(t, merged.TopicGenerated)
	assert.Equal(t, 0.9, merged.IntentConfidence)
	assert.Equal(t, int64(1200), merged.DurationMs)
	assert.Equal(t, &resultID, merged.SqlResultID)
	assert.True(t, merged.ShouldVisualize)
}

func TestMerge_ErrorsConcatenate(t *testing.T) {
	base := &AgentState{Errors: []string{"topic generation failed"}}
	delta := &AgentState{Errors: []string{"example retrieval failed"}}

	merged := Merge(base, delta)

	require.Len(t, merged.Errors, 2)
	assert.Equal(t, "topic generation failed", merged.Errors[0])
	assert.Equal(t, "example retrieval failed", merged.Errors[1])
}

func TestMerge_MessagesConcatenate(t *testing.T) {
	base := &AgentState{Messages: []llm.Message{
		{Role: llm.RoleUser, Content: "how many orders?"},
	}}
	delta := &AgentState{Messages: []llm.Message{
		{Role: llm.RoleAssistant, Content: "There were 42 orders."},
	}}

	merged := Merge(base, delta)

	require.Len(t, merged.Messages, 2)
	assert.Equal(t, llm.RoleUser, merged.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, merged.Messages[1].Role)
	// Base slice must not be mutated.
	assert.Len(t, base.Messages, 1)
}

func TestMerge_SimpleMessagesDeduplicate(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := models.SimpleMessage{Role: "user", Content: "hello", Timestamp: ts}

	base := &AgentState{SimpleMessages: []models.SimpleMessage{msg}}
	delta := &AgentState{SimpleMessages: []models.SimpleMessage{
		msg,
		{Role: "assistant", Content: "hi", Timestamp: ts},
	}}

	merged := Merge(base, delta)

	require.Len(t, merged.SimpleMessages, 2)
	assert.Equal(t, "hello", merged.SimpleMessages[0].Content)
	assert.Equal(t, "hi", merged.SimpleMessages[1].Content)
}

func TestMerge_SimpleMessagesDedupNormalizesBadTimestamps(t *testing.T) {
	// Zero and far-future timestamps normalize to the same key, so
	// otherwise-identical entries collapse.
	farFuture := time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)
	base := &AgentState{SimpleMessages: []models.SimpleMessage{
		{Role: "user", Content: "ping"},
	}}
	delta := &AgentState{SimpleMessages: []models.SimpleMessage{
		{Role: "user", Content: "ping", Timestamp: farFuture},
	}}

	merged := Merge(base, delta)

	assert.Len(t, merged.SimpleMessages, 1)
}

func TestMerge_RowsOverwrittenWhenSet(t *testing.T) {
	base := &AgentState{Rows: []map[string]any{{"n": 1}}}
	delta := &AgentState{Rows: []map[string]any{{"n": 2}, {"n": 3}}}

	merged := Merge(base, delta)

	require.Len(t, merged.Rows, 2)
	assert.Equal(t, 2, merged.Rows[0]["n"])
}
