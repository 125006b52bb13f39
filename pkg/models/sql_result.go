package models

import (
	"time"

	"github.com/google/uuid"
)

// SqlResult captures one executed query's outcome. Immutable once created;
// owned exclusively by one interaction.
type SqlResult struct {
	ID            uuid.UUID        `json:"id"`
	InteractionID uuid.UUID        `json:"interaction_id"`
	SQL           string           `json:"sql"`
	Rows          []map[string]any `json:"rows"`
	RowCount      int              `json:"row_count"`
	Status        ExecutionStatus  `json:"status"`
	ErrorMessage  *string          `json:"error_message,omitempty"`
	DurationMs    *int64           `json:"duration_ms,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
