package llm

// ToolDefinition defines a tool that can be called by the LLM.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ParameterProperty defines a parameter property in JSON Schema format.
type ParameterProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Items       string   `json:"items,omitempty"` // element type for arrays
}

// NewToolDefinition creates a new tool definition with standard JSON Schema parameters.
func NewToolDefinition(name, description string, properties map[string]ParameterProperty, required []string) ToolDefinition {
	props := make(map[string]any)
	for k, v := range properties {
		prop := map[string]any{
			"type":        v.Type,
			"description": v.Description,
		}
		if len(v.Enum) > 0 {
			prop["enum"] = v.Enum
		}
		if v.Items != "" {
			prop["items"] = map[string]any{"type": v.Items}
		}
		props[k] = prop
	}

	return ToolDefinition{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// SQLQueryToolName is the tool the SQL agent uses to run generated queries.
const SQLQueryToolName = "query-sql"

// GetSQLAgentTools returns the tool definitions for the SQL execution agent.
func GetSQLAgentTools() []ToolDefinition {
	return []ToolDefinition{
		NewToolDefinition(
			SQLQueryToolName,
			"Execute a read-only SQL query against the user's configured database and return the result rows as JSON",
			map[string]ParameterProperty{
				"sql": {
					Type:        "string",
					Description: "The SQL query to execute. Must be a single SELECT (or WITH) statement.",
				},
				"params": {
					Type:        "array",
					Description: "Optional positional parameters for the query, in order.",
					Items:       "string",
				},
			},
			[]string{"sql"},
		),
	}
}
