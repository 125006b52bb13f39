package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const anthropicMaxTokens = 4096

// AnthropicClient provides access to the Anthropic Messages API.
// It satisfies both LLMClient and ToolStreamer; embeddings are not
// available on this provider and always error.
type AnthropicClient struct {
	client            *anthropic.Client
	model             string
	maxToolIterations int
	logger            *zap.Logger
}

// AnthropicConfig holds configuration for creating an Anthropic client.
type AnthropicConfig struct {
	Model             string
	APIKey            string
	MaxToolIterations int
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg *AnthropicConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	maxIter := cfg.MaxToolIterations
	if maxIter <= 0 {
		maxIter = 10
	}

	return &AnthropicClient{
		client:            anthropic.NewClient(cfg.APIKey),
		model:             cfg.Model,
		maxToolIterations: maxIter,
		logger:            logger.Named("llm-anthropic"),
	}, nil
}

// GenerateResponse generates a chat completion response with usage stats.
func (c *AnthropicClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	temp := float32(temperature)
	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		MaxTokens:   anthropicMaxTokens,
		System:      systemMessage,
		Temperature: &temp,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	content := anthropicText(resp.Content)

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponseResult{
		Content:          content,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// CreateEmbedding is not supported by the Anthropic API.
func (c *AnthropicClient) CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error) {
	return nil, NewError(ErrorTypeModel, "anthropic does not provide an embeddings API", false, nil)
}

// CreateEmbeddings is not supported by the Anthropic API.
func (c *AnthropicClient) CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	return nil, NewError(ErrorTypeModel, "anthropic does not provide an embeddings API", false, nil)
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// GetEndpoint returns the API endpoint.
func (c *AnthropicClient) GetEndpoint() string {
	return "https://api.anthropic.com"
}

// StreamWithTools drives a tool-use loop against the Messages API and emits
// the same event sequence as StreamingClient. Each iteration's text arrives
// as a single text event rather than token deltas.
func (c *AnthropicClient) StreamWithTools(
	ctx context.Context,
	req *StreamingRequest,
	executor ToolExecutor,
	eventChan chan<- StreamEvent,
) error {
	temp := float32(req.Temperature)
	if temp == 0 {
		temp = 0.7
	}

	messages := buildAnthropicMessages(req.Messages)
	tools := buildAnthropicTools(req.Tools)

	for iteration := 0; iteration < c.maxToolIterations; iteration++ {
		start := time.Now()

		resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:       anthropic.Model(c.model),
			MaxTokens:   anthropicMaxTokens,
			System:      req.SystemPrompt,
			Temperature: &temp,
			Messages:    messages,
			Tools:       tools,
		})
		if err != nil {
			classified := ClassifyError(err)
			eventChan <- StreamEvent{Type: StreamEventError, Content: classified.Error()}
			return classified
		}

		toolUses := anthropicToolUses(resp.Content)
		if text := anthropicText(resp.Content); text != "" {
			eventChan <- StreamEvent{Type: StreamEventText, Content: text}
		}

		c.logger.Info("Tool-use iteration completed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("tool_calls", len(toolUses)))

		if len(toolUses) == 0 {
			eventChan <- StreamEvent{Type: StreamEventDone}
			return nil
		}

		// Echo the assistant turn (including tool_use blocks) into history.
		messages = append(messages, anthropic.Message{
			Role:    anthropic.RoleAssistant,
			Content: resp.Content,
		})

		for _, tu := range toolUses {
			eventChan <- StreamEvent{Type: StreamEventToolCall, Data: tu}

			result, execErr := executor.ExecuteTool(ctx, tu.Function.Name, tu.Function.Arguments)
			isError := false
			if execErr != nil {
				result = fmt.Sprintf("Error executing tool: %s", execErr.Error())
				isError = true
			}

			eventChan <- StreamEvent{
				Type:    StreamEventToolResult,
				Content: result,
				Data:    ToolResultData{ToolCallID: tu.ID, Name: tu.Function.Name},
			}

			messages = append(messages, anthropic.NewToolResultsMessage(tu.ID, result, isError))
		}
	}

	return fmt.Errorf("exceeded maximum tool iterations (%d)", c.maxToolIterations)
}

func buildAnthropicMessages(messages []Message) []anthropic.Message {
	var result []anthropic.Message
	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			result = append(result, anthropic.NewAssistantTextMessage(msg.Content))
		default:
			result = append(result, anthropic.NewUserTextMessage(msg.Content))
		}
	}
	return result
}

func buildAnthropicTools(tools []ToolDefinition) []anthropic.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolDefinition, len(tools))
	for i, def := range tools {
		result[i] = anthropic.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
		}
	}
	return result
}

func anthropicText(content []anthropic.MessageContent) string {
	for _, block := range content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}

func anthropicToolUses(content []anthropic.MessageContent) []ToolCall {
	var calls []ToolCall
	for _, block := range content {
		if block.Type != anthropic.MessagesContentTypeToolUse || block.MessageContentToolUse == nil {
			continue
		}
		args, err := json.Marshal(block.MessageContentToolUse.Input)
		if err != nil {
			args = []byte("{}")
		}
		calls = append(calls, ToolCall{
			ID:   block.MessageContentToolUse.ID,
			Type: "function",
			Function: ToolCallFunc{
				Name:      block.MessageContentToolUse.Name,
				Arguments: string(args),
			},
		})
	}
	return calls
}

// Ensure AnthropicClient implements both contracts at compile time.
var (
	_ LLMClient    = (*AnthropicClient)(nil)
	_ ToolStreamer = (*AnthropicClient)(nil)
)
