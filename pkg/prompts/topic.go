package prompts

import "fmt"

// BuildTopicPrompt creates the prompt that labels a new thread from its
// first question.
func BuildTopicPrompt(query string) string {
	return fmt.Sprintf(`Generate a short topic label for a conversation that starts with this question:

%s

Rules:
- at most 6 words
- no quotes, no trailing punctuation
- describe the subject, not the question form

Respond with the label only.`, query)
}
