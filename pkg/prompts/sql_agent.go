package prompts

import (
	"fmt"
	"strings"

	"github.com/querypilot/querypilot-engine/pkg/models"
)

// ConversationTurn is one prior exchange included in the SQL agent prompt.
type ConversationTurn struct {
	Question string
	SQL      string
	Response string
}

// BuildSQLAgentSystemPrompt creates the system prompt for the tool-using
// SQL generation loop. Examples are few-shot context only; the agent must
// still work when none are available.
func BuildSQLAgentSystemPrompt(
	databaseType models.DatabaseType,
	databaseName string,
	examples []models.RankedExample,
	history []ConversationTurn,
	locale, timezone string,
) string {
	var prompt strings.Builder

	prompt.WriteString("You are an expert data analyst. Answer the user's question by querying their database with the query-sql tool, then summarize the result in plain language.\n\n")

	prompt.WriteString(fmt.Sprintf("Target database: %s (%s dialect).\n", databaseName, databaseType))
	if locale != "" {
		prompt.WriteString(fmt.Sprintf("Respond in the user's locale: %s.\n", locale))
	}
	if timezone != "" {
		prompt.WriteString(fmt.Sprintf("Interpret relative dates in timezone: %s.\n", timezone))
	}
	prompt.WriteString("\n")

	prompt.WriteString("Rules:\n")
	prompt.WriteString("- Generate read-only SQL. Never produce INSERT, UPDATE, DELETE, DROP, ALTER, TRUNCATE, CREATE, GRANT, or any other statement that modifies data or schema.\n")
	prompt.WriteString("- Use the query-sql tool to run queries. Inspect results before answering.\n")
	prompt.WriteString("- If a query errors, read the error, correct the SQL, and retry.\n")
	prompt.WriteString("- Keep the final answer concise and grounded in the returned rows. Do not fabricate values.\n\n")

	if len(examples) > 0 {
		prompt.WriteString("Similar questions answered before (for reference only; adapt, do not copy blindly):\n\n")
		for i, example := range examples {
			prompt.WriteString(fmt.Sprintf("Example %d:\nQuestion: %s\nSQL: %s\n\n", i+1, example.Question, example.SQL))
		}
	}

	if len(history) > 0 {
		prompt.WriteString("Conversation so far:\n\n")
		for _, turn := range history {
			prompt.WriteString(fmt.Sprintf("User: %s\n", turn.Question))
			if turn.SQL != "" {
				prompt.WriteString(fmt.Sprintf("SQL used: %s\n", turn.SQL))
			}
			if turn.Response != "" {
				prompt.WriteString(fmt.Sprintf("Assistant: %s\n", turn.Response))
			}
			prompt.WriteString("\n")
		}
		prompt.WriteString("Follow-up questions refer to this conversation. Resolve references like \"those customers\" or \"the same period\" against it.\n")
	}

	return prompt.String()
}
