package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/config"
)

// Provider names accepted as per-request overrides.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// LLMClientFactory is the interface for creating LLM clients.
// The provider argument is a per-request override; empty selects the
// configured default provider.
type LLMClientFactory interface {
	CreateClient(provider string) (LLMClient, error)
	CreateEmbeddingClient() (LLMClient, error)
	CreateToolStreamer(provider string) (ToolStreamer, error)
}

// ClientFactory creates LLM clients from server-level provider configuration.
type ClientFactory struct {
	cfg               *config.LLMConfig
	maxToolIterations int
	logger            *zap.Logger
}

// NewClientFactory creates a new factory.
func NewClientFactory(cfg *config.LLMConfig, maxToolIterations int, logger *zap.Logger) *ClientFactory {
	return &ClientFactory{
		cfg:               cfg,
		maxToolIterations: maxToolIterations,
		logger:            logger,
	}
}

func (f *ClientFactory) resolve(provider string) (string, error) {
	if provider == "" {
		provider = f.cfg.DefaultProvider
	}
	switch provider {
	case ProviderOpenAI, ProviderAnthropic:
		return provider, nil
	default:
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedProvider, provider)
	}
}

// CreateClient creates a chat-completion client for the given provider.
func (f *ClientFactory) CreateClient(provider string) (LLMClient, error) {
	resolved, err := f.resolve(provider)
	if err != nil {
		return nil, err
	}

	switch resolved {
	case ProviderAnthropic:
		return NewAnthropicClient(&AnthropicConfig{
			Model:             f.cfg.AnthropicModel,
			APIKey:            f.cfg.AnthropicAPIKey,
			MaxToolIterations: f.maxToolIterations,
		}, f.logger)
	default:
		return NewClient(&Config{
			Endpoint: f.cfg.OpenAIBaseURL,
			Model:    f.cfg.OpenAIModel,
			APIKey:   f.cfg.OpenAIAPIKey,
		}, f.logger)
	}
}

// CreateEmbeddingClient creates a client for embeddings. Embeddings always go
// through the OpenAI-compatible endpoint regardless of the chat provider.
func (f *ClientFactory) CreateEmbeddingClient() (LLMClient, error) {
	return NewClient(&Config{
		Endpoint: f.cfg.OpenAIBaseURL,
		Model:    f.cfg.EmbeddingModel,
		APIKey:   f.cfg.OpenAIAPIKey,
	}, f.logger)
}

// CreateToolStreamer creates a streaming tool-use client for the given provider.
func (f *ClientFactory) CreateToolStreamer(provider string) (ToolStreamer, error) {
	resolved, err := f.resolve(provider)
	if err != nil {
		return nil, err
	}

	switch resolved {
	case ProviderAnthropic:
		return NewAnthropicClient(&AnthropicConfig{
			Model:             f.cfg.AnthropicModel,
			APIKey:            f.cfg.AnthropicAPIKey,
			MaxToolIterations: f.maxToolIterations,
		}, f.logger)
	default:
		return NewStreamingClient(&Config{
			Endpoint: f.cfg.OpenAIBaseURL,
			Model:    f.cfg.OpenAIModel,
			APIKey:   f.cfg.OpenAIAPIKey,
		}, f.maxToolIterations, f.logger)
	}
}

// Ensure ClientFactory implements LLMClientFactory at compile time.
var _ LLMClientFactory = (*ClientFactory)(nil)
