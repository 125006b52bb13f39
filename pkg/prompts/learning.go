package prompts

import (
	"fmt"
	"strings"
)

// BuildExampleSynthesisPrompt creates the prompt that distills a rated
// conversation into one standalone question for the example store. The
// synthesized question must make sense without the conversation.
func BuildExampleSynthesisPrompt(turns []ConversationTurn, finalSQL string) string {
	var prompt strings.Builder

	prompt.WriteString("A user confirmed the final answer of this conversation was helpful. Write ONE self-contained question that captures what the conversation was ultimately asking, so it can be paired with the final SQL as a reusable example.\n\n")

	prompt.WriteString("Conversation:\n")
	for _, turn := range turns {
		prompt.WriteString(fmt.Sprintf("User: %s\n", turn.Question))
		if turn.Response != "" {
			prompt.WriteString(fmt.Sprintf("Assistant: %s\n", turn.Response))
		}
	}

	prompt.WriteString(fmt.Sprintf("\nFinal SQL:\n%s\n\n", finalSQL))
	prompt.WriteString("Rules:\n")
	prompt.WriteString("- The question must be answerable by the final SQL alone.\n")
	prompt.WriteString("- Resolve all references (\"that month\", \"those products\") to explicit terms.\n")
	prompt.WriteString("- Respond with the question only, no quotes or commentary.\n")

	return prompt.String()
}
