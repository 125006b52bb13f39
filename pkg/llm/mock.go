package llm

import (
	"context"
)

// MockLLMClient is a configurable mock for testing LLM functionality.
// Set the function fields to control behavior in tests.
type MockLLMClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns empty result and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// CreateEmbeddingFunc is called when CreateEmbedding is invoked.
	// If nil, returns nil slice and nil error.
	CreateEmbeddingFunc func(ctx context.Context, input string, model string) ([]float32, error)

	// CreateEmbeddingsFunc is called when CreateEmbeddings is invoked.
	// If nil, returns nil slice and nil error.
	CreateEmbeddingsFunc func(ctx context.Context, inputs []string, model string) ([][]float32, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	// Call tracking for verification
	GenerateResponseCalls int
	CreateEmbeddingCalls  int
	CreateEmbeddingsCalls int
}

// NewMockLLMClient creates a new mock with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// GenerateResponse implements LLMClient.
func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	m.GenerateResponseCalls++
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return &GenerateResponseResult{}, nil
}

// CreateEmbedding implements LLMClient.
func (m *MockLLMClient) CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error) {
	m.CreateEmbeddingCalls++
	if m.CreateEmbeddingFunc != nil {
		return m.CreateEmbeddingFunc(ctx, input, model)
	}
	return nil, nil
}

// CreateEmbeddings implements LLMClient.
func (m *MockLLMClient) CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	m.CreateEmbeddingsCalls++
	if m.CreateEmbeddingsFunc != nil {
		return m.CreateEmbeddingsFunc(ctx, inputs, model)
	}
	return nil, nil
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements LLMClient.
func (m *MockLLMClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

// Reset clears call tracking counters.
func (m *MockLLMClient) Reset() {
	m.GenerateResponseCalls = 0
	m.CreateEmbeddingCalls = 0
	m.CreateEmbeddingsCalls = 0
}

// Ensure MockLLMClient implements LLMClient at compile time.
var _ LLMClient = (*MockLLMClient)(nil)

// MockToolExecutor is a configurable mock for testing tool execution.
type MockToolExecutor struct {
	// ExecuteToolFunc is called when ExecuteTool is invoked.
	// If nil, returns a success payload and nil error.
	ExecuteToolFunc func(ctx context.Context, name string, arguments string) (string, error)

	// Call tracking
	ExecuteToolCalls []MockToolCall
}

// MockToolCall records a call to ExecuteTool.
type MockToolCall struct {
	Name      string
	Arguments string
}

// NewMockToolExecutor creates a new mock tool executor.
func NewMockToolExecutor() *MockToolExecutor {
	return &MockToolExecutor{
		ExecuteToolCalls: []MockToolCall{},
	}
}

// ExecuteTool implements ToolExecutor.
func (m *MockToolExecutor) ExecuteTool(ctx context.Context, name string, arguments string) (string, error) {
	m.ExecuteToolCalls = append(m.ExecuteToolCalls, MockToolCall{Name: name, Arguments: arguments})
	if m.ExecuteToolFunc != nil {
		return m.ExecuteToolFunc(ctx, name, arguments)
	}
	return `{"success": true}`, nil
}

// Reset clears call tracking.
func (m *MockToolExecutor) Reset() {
	m.ExecuteToolCalls = []MockToolCall{}
}

// Ensure MockToolExecutor implements ToolExecutor at compile time.
var _ ToolExecutor = (*MockToolExecutor)(nil)

// MockToolStreamer replays a scripted event sequence for testing the
// executor node without a live model.
type MockToolStreamer struct {
	// Events are sent to the event channel in order. If a tool_call event's
	// Data is a ToolCall, the executor passed to StreamWithTools is invoked
	// and a tool_result event with its output follows automatically.
	Events []StreamEvent

	// Err, if set, is returned after all events are sent.
	Err error

	// Call tracking
	StreamWithToolsCalls int
	LastRequest          *StreamingRequest
}

// StreamWithTools implements ToolStreamer.
func (m *MockToolStreamer) StreamWithTools(ctx context.Context, req *StreamingRequest, executor ToolExecutor, eventChan chan<- StreamEvent) error {
	m.StreamWithToolsCalls++
	m.LastRequest = req

	for _, ev := range m.Events {
		eventChan <- ev

		if ev.Type == StreamEventToolCall {
			if tc, ok := ev.Data.(ToolCall); ok && executor != nil {
				result, execErr := executor.ExecuteTool(ctx, tc.Function.Name, tc.Function.Arguments)
				if execErr != nil {
					result = "Error executing tool: " + execErr.Error()
				}
				eventChan <- StreamEvent{
					Type:    StreamEventToolResult,
					Content: result,
					Data:    ToolResultData{ToolCallID: tc.ID, Name: tc.Function.Name},
				}
			}
		}
	}

	if m.Err != nil {
		return m.Err
	}
	return nil
}

// MockClientFactory is a configurable mock for testing LLM client creation.
type MockClientFactory struct {
	// CreateClientFunc is called when CreateClient is invoked.
	// If nil, returns MockClient.
	CreateClientFunc func(provider string) (LLMClient, error)

	// CreateEmbeddingClientFunc is called when CreateEmbeddingClient is invoked.
	// If nil, returns MockClient.
	CreateEmbeddingClientFunc func() (LLMClient, error)

	// CreateToolStreamerFunc is called when CreateToolStreamer is invoked.
	// If nil, returns MockStreamer.
	CreateToolStreamerFunc func(provider string) (ToolStreamer, error)

	// MockClient is the default client returned if functions are not set.
	MockClient *MockLLMClient

	// MockStreamer is the default streamer returned if functions are not set.
	MockStreamer *MockToolStreamer
}

// NewMockClientFactory creates a new mock client factory.
func NewMockClientFactory() *MockClientFactory {
	return &MockClientFactory{
		MockClient:   NewMockLLMClient(),
		MockStreamer: &MockToolStreamer{},
	}
}

// CreateClient implements LLMClientFactory.
func (f *MockClientFactory) CreateClient(provider string) (LLMClient, error) {
	if f.CreateClientFunc != nil {
		return f.CreateClientFunc(provider)
	}
	return f.MockClient, nil
}

// CreateEmbeddingClient implements LLMClientFactory.
func (f *MockClientFactory) CreateEmbeddingClient() (LLMClient, error) {
	if f.CreateEmbeddingClientFunc != nil {
		return f.CreateEmbeddingClientFunc()
	}
	return f.MockClient, nil
}

// CreateToolStreamer implements LLMClientFactory.
func (f *MockClientFactory) CreateToolStreamer(provider string) (ToolStreamer, error) {
	if f.CreateToolStreamerFunc != nil {
		return f.CreateToolStreamerFunc(provider)
	}
	return f.MockStreamer, nil
}

// Ensure mocks implement their contracts at compile time.
var (
	_ LLMClientFactory = (*MockClientFactory)(nil)
	_ ToolStreamer     = (*MockToolStreamer)(nil)
)
