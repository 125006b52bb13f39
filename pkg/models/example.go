package models

import (
	"time"

	"github.com/google/uuid"
)

// Example is a learned question/SQL pair used for retrieval-augmented
// generation. Produced by explicit curation or automatically from
// confirmed-helpful interactions.
type Example struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	SQL       string    `json:"sql"`
	Embedding []float32 `json:"-"`

	QualityScore     float64 `json:"quality_score"`
	UsageCount       int     `json:"usage_count"`
	SuccessCount     int     `json:"success_count"`
	FeedbackCount    int     `json:"feedback_count"`
	PositiveFeedback int     `json:"positive_feedback"`
	IsVerified       bool    `json:"is_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RankedExample is a retrieval hit. Similarity is nil when the example came
// from the lexical fallback path, which attaches no score.
type RankedExample struct {
	ID         uuid.UUID `json:"id"`
	Question   string    `json:"question"`
	SQL        string    `json:"sql"`
	Similarity *float64  `json:"similarity,omitempty"`
}
