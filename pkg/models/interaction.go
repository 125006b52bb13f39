package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus tracks the outcome of one interaction's SQL execution.
type ExecutionStatus string

const (
	StatusPending         ExecutionStatus = "pending"
	StatusSuccess         ExecutionStatus = "success"
	StatusFailed          ExecutionStatus = "failed"
	StatusTimeout         ExecutionStatus = "timeout"
	StatusSyntaxError     ExecutionStatus = "syntax_error"
	StatusPermissionError ExecutionStatus = "permission_error"
)

// Rating is the user's verdict on an interaction's answer.
type Rating string

const (
	RatingHelpful    Rating = "helpful"
	RatingNotHelpful Rating = "not_helpful"
	RatingIncorrect  Rating = "incorrect"
)

// SimpleMessage is one entry of the simplified transcript shown to the user:
// user turns, assistant replies, and tool call/response records.
type SimpleMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Step      string    `json:"step,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Interaction represents one question/answer exchange within a thread.
// Created with status pending before the workflow runs, so mid-workflow
// failures still leave an auditable record.
type Interaction struct {
	ID       uuid.UUID `json:"id"`
	ThreadID uuid.UUID `json:"thread_id"`

	Query    string `json:"query"`
	Response string `json:"response"`

	ExecutionStatus ExecutionStatus `json:"execution_status"`
	DurationMs      *int64          `json:"duration_ms,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`

	SqlResultID     *uuid.UUID `json:"sql_result_id,omitempty"`
	VisualizationID *uuid.UUID `json:"visualization_id,omitempty"`

	SimpleMessages []SimpleMessage `json:"simple_messages,omitempty"`
	UsedExampleIDs []uuid.UUID     `json:"used_example_ids,omitempty"`

	Rating   *Rating    `json:"rating,omitempty"`
	Feedback *string    `json:"feedback,omitempty"`
	RatedAt  *time.Time `json:"rated_at,omitempty"`

	// SqlResult and Visualization are populated on deep reads only.
	SqlResult     *SqlResult     `json:"sql_result,omitempty"`
	Visualization *Visualization `json:"visualization,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the execution status reached a final value.
func (s ExecutionStatus) IsTerminal() bool {
	return s != StatusPending
}
