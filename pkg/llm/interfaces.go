// Package llm provides LLM client functionality for the reporting workflow:
// chat completion, embeddings, and a streaming tool-use loop.
package llm

import (
	"context"
)

// GenerateResponseResult carries a completion plus usage stats.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient defines the interface for LLM operations.
// Combines both generative (chat completion) and embedding capabilities.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)

	// CreateEmbeddings generates embeddings for multiple inputs.
	CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// ToolStreamer drives a tool-use loop and emits events on a channel.
// The event sequence is lazy and finite; each event carries a partial
// message, a tool-call request, or a tool result. A stream is not
// restartable.
type ToolStreamer interface {
	StreamWithTools(ctx context.Context, req *StreamingRequest, executor ToolExecutor, eventChan chan<- StreamEvent) error
}

// Ensure Client implements LLMClient at compile time.
var _ LLMClient = (*Client)(nil)
