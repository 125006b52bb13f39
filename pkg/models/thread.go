package models

import (
	"time"

	"github.com/google/uuid"
)

// Thread represents one conversation: an ordered sequence of interactions
// against a single database connection.
type Thread struct {
	ID           uuid.UUID `json:"id"`
	Topic        *string   `json:"topic,omitempty"`
	Locale       string    `json:"locale"`
	Timezone     string    `json:"timezone"`
	ConnectionID uuid.UUID `json:"connection_id"`

	// Interactions is populated on deep reads only.
	Interactions []*Interaction `json:"interactions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
