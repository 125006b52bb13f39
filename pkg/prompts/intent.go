// Package prompts builds the LLM prompt text used by the query workflow.
package prompts

import (
	"fmt"
	"strings"
)

// Intent labels recognized by the classifier.
const (
	IntentFact        = "fact"
	IntentQuickMetric = "quick_metric"
	IntentReport      = "report"
	IntentChitchat    = "chitchat"
	IntentUnknown     = "unknown"
)

// BuildIntentClassificationPrompt creates the classification prompt. The
// conversation context lets follow-up questions inherit the intent of the
// topic they continue instead of being classified in isolation.
func BuildIntentClassificationPrompt(query, conversationContext string) string {
	var prompt strings.Builder

	prompt.WriteString("Classify the intent of a user question directed at a data analytics assistant.\n\n")
	prompt.WriteString("Intents:\n")
	prompt.WriteString("- fact: a question answerable by looking up specific records (\"which customer placed order 1042?\")\n")
	prompt.WriteString("- quick_metric: a single aggregate number (\"how many orders today?\", \"total revenue this month\")\n")
	prompt.WriteString("- report: a request for a breakdown, trend, comparison, or multi-row analysis\n")
	prompt.WriteString("- chitchat: greetings, questions about the assistant itself, or anything unrelated to the data\n")
	prompt.WriteString("- unknown: cannot be determined\n\n")

	if conversationContext != "" {
		prompt.WriteString("Prior conversation:\n")
		prompt.WriteString(conversationContext)
		prompt.WriteString("\n\n")
		prompt.WriteString("If the question is a follow-up that continues a prior topic (\"and last week?\", \"break that down by region\"), ")
		prompt.WriteString("classify it with the intent of the question it follows, not as an independent fragment.\n\n")
	}

	prompt.WriteString(fmt.Sprintf("Question: %s\n\n", query))
	prompt.WriteString("Respond with JSON only:\n")
	prompt.WriteString(`{"intent": "fact|quick_metric|report|chitchat|unknown", "confidence": 0.0}`)

	return prompt.String()
}
