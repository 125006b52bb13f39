package models

import (
	"time"

	"github.com/google/uuid"
)

// GraphType enumerates supported chart types.
type GraphType string

const (
	GraphBar     GraphType = "bar"
	GraphLine    GraphType = "line"
	GraphPie     GraphType = "pie"
	GraphScatter GraphType = "scatter"
	GraphArea    GraphType = "area"
	GraphTable   GraphType = "table"
)

// AxisBinding binds a chart axis or series to a result-set field.
type AxisBinding struct {
	Field string `json:"field"`
	Label string `json:"label,omitempty"`
}

// GraphSpec is one proposed chart over the result set.
type GraphSpec struct {
	Type      GraphType   `json:"type"`
	Title     string      `json:"title"`
	XAxis     AxisBinding `json:"xAxis"`
	YAxis     AxisBinding `json:"yAxis"`
	Color     string      `json:"color,omitempty"`
	Legend    bool        `json:"legend,omitempty"`
	Reasoning string      `json:"reasoning,omitempty"`
}

// Visualization holds the analyzer's decision for one interaction.
// Persisted only when ShouldVisualize is true with at least one valid graph.
type Visualization struct {
	ID              uuid.UUID   `json:"id"`
	InteractionID   uuid.UUID   `json:"interaction_id"`
	ShouldVisualize bool        `json:"should_visualize"`
	Reasoning       string      `json:"reasoning"`
	Graphs          []GraphSpec `json:"graphs"`
	CreatedAt       time.Time   `json:"created_at"`
}
