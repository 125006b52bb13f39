// Package retrieval finds similar question/SQL examples for prompt context
// and learns new ones from confirmed-helpful interactions.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/prompts"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
	"github.com/querypilot/querypilot-engine/pkg/retry"
)

// Retrieval thresholds. Prompt-context retrieval uses a looser threshold
// than the learning write path's duplicate gate.
const (
	PromptThreshold     = 0.2
	DuplicateThreshold  = 0.85
	LearnedQualityScore = 0.8
	DefaultLimit        = 5
)

// Retriever is the example retrieval and learning surface.
type Retriever interface {
	// FindSimilar returns examples ranked by cosine similarity. An
	// embedding failure propagates; a store failure degrades to a lexical
	// substring search with no similarity scores. Empty results are not
	// an error.
	FindSimilar(ctx context.Context, query string, limit int, threshold float64) ([]models.RankedExample, error)

	// AddExample embeds and stores a curated example.
	AddExample(ctx context.Context, question, sqlText string, qualityScore float64, verified bool) (uuid.UUID, error)

	// LearnFromConversation synthesizes a standalone question from a
	// helpful conversation and stores it with the final SQL, skipping
	// near-duplicates. Returns uuid.Nil when skipped.
	LearnFromConversation(ctx context.Context, turns []prompts.ConversationTurn, finalSQL string) (uuid.UUID, error)

	// RecordUsage bumps usage counters for examples that contributed to a
	// successful generation.
	RecordUsage(ctx context.Context, ids []uuid.UUID) error

	// RecordFeedback folds a user rating back into example quality stats.
	RecordFeedback(ctx context.Context, ids []uuid.UUID, positive bool) error
}

type retriever struct {
	exampleRepo    repositories.ExampleRepository
	llmFactory     llm.LLMClientFactory
	embeddingModel string
	logger         *zap.Logger
}

// NewRetriever creates a new Retriever.
func NewRetriever(
	exampleRepo repositories.ExampleRepository,
	llmFactory llm.LLMClientFactory,
	embeddingModel string,
	logger *zap.Logger,
) Retriever {
	return &retriever{
		exampleRepo:    exampleRepo,
		llmFactory:     llmFactory,
		embeddingModel: embeddingModel,
		logger:         logger.Named("retrieval"),
	}
}

var _ Retriever = (*retriever)(nil)

func (r *retriever) embed(ctx context.Context, text string) ([]float32, error) {
	client, err := r.llmFactory.CreateEmbeddingClient()
	if err != nil {
		return nil, err
	}
	// Transient provider errors retry with backoff; permanent ones
	// (bad key, oversized input) fail immediately.
	var embedding []float32
	err = retry.DoIfRetryable(ctx, nil, func() error {
		var embedErr error
		embedding, embedErr = client.CreateEmbedding(ctx, text, r.embeddingModel)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	return embedding, nil
}

func (r *retriever) FindSimilar(ctx context.Context, query string, limit int, threshold float64) ([]models.RankedExample, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	embedding, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := r.exampleRepo.SearchSimilar(ctx, embedding, threshold, limit)
	if err != nil {
		r.logger.Warn("vector search failed, falling back to lexical search",
			zap.Error(err))
		results, err = r.exampleRepo.SearchLexical(ctx, query, limit)
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (r *retriever) AddExample(ctx context.Context, question, sqlText string, qualityScore float64, verified bool) (uuid.UUID, error) {
	embedding, err := r.embed(ctx, question)
	if err != nil {
		return uuid.Nil, err
	}

	example := &models.Example{
		Question:     question,
		SQL:          sqlText,
		Embedding:    embedding,
		QualityScore: qualityScore,
		IsVerified:   verified,
	}
	if err := r.exampleRepo.Create(ctx, example); err != nil {
		return uuid.Nil, err
	}

	r.logger.Info("example stored",
		zap.String("example_id", example.ID.String()),
		zap.Bool("verified", verified))
	return example.ID, nil
}

func (r *retriever) LearnFromConversation(ctx context.Context, turns []prompts.ConversationTurn, finalSQL string) (uuid.UUID, error) {
	if len(turns) == 0 || strings.TrimSpace(finalSQL) == "" {
		return uuid.Nil, nil
	}

	client, err := r.llmFactory.CreateClient("")
	if err != nil {
		return uuid.Nil, err
	}

	prompt := prompts.BuildExampleSynthesisPrompt(turns, finalSQL)
	result, err := client.GenerateResponse(ctx, prompt, "", 0.3)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to synthesize example question: %w", err)
	}

	question := strings.TrimSpace(strings.Trim(strings.TrimSpace(result.Content), `"`))
	if question == "" {
		return uuid.Nil, fmt.Errorf("example synthesis produced an empty question")
	}

	embedding, err := r.embed(ctx, question)
	if err != nil {
		return uuid.Nil, err
	}

	maxSimilarity, err := r.exampleRepo.MaxSimilarity(ctx, embedding)
	if err != nil {
		return uuid.Nil, err
	}
	if maxSimilarity >= DuplicateThreshold {
		r.logger.Info("skipping near-duplicate example",
			zap.Float64("max_similarity", maxSimilarity))
		return uuid.Nil, nil
	}

	example := &models.Example{
		Question:     question,
		SQL:          finalSQL,
		Embedding:    embedding,
		QualityScore: LearnedQualityScore,
		IsVerified:   true,
	}
	if err := r.exampleRepo.Create(ctx, example); err != nil {
		return uuid.Nil, err
	}

	r.logger.Info("learned example from feedback",
		zap.String("example_id", example.ID.String()))
	return example.ID, nil
}

func (r *retriever) RecordUsage(ctx context.Context, ids []uuid.UUID) error {
	return r.exampleRepo.IncrementUsage(ctx, ids)
}

func (r *retriever) RecordFeedback(ctx context.Context, ids []uuid.UUID, positive bool) error {
	return r.exampleRepo.RecordFeedback(ctx, ids, positive)
}
