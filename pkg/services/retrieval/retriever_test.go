package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/prompts"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
)

type mockExampleRepo struct {
	SearchSimilarFunc func(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.RankedExample, error)
	SearchLexicalFunc func(ctx context.Context, question string, limit int) ([]models.RankedExample, error)
	MaxSimilarityFunc func(ctx context.Context, embedding []float32) (float64, error)

	Created        []*models.Example
	UsageIDs       []uuid.UUID
	FeedbackIDs    []uuid.UUID
	FeedbackSignal []bool
}

func (m *mockExampleRepo) Create(ctx context.Context, example *models.Example) error {
	if example.ID == uuid.Nil {
		example.ID = uuid.New()
	}
	m.Created = append(m.Created, example)
	return nil
}
func (m *mockExampleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Example, error) {
	return nil, errors.New("not implemented")
}
func (m *mockExampleRepo) List(ctx context.Context, limit int) ([]*models.Example, error) {
	return nil, nil
}
func (m *mockExampleRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (m *mockExampleRepo) SearchSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.RankedExample, error) {
	if m.SearchSimilarFunc != nil {
		return m.SearchSimilarFunc(ctx, embedding, threshold, limit)
	}
	return nil, nil
}
func (m *mockExampleRepo) SearchLexical(ctx context.Context, question string, limit int) ([]models.RankedExample, error) {
	if m.SearchLexicalFunc != nil {
		return m.SearchLexicalFunc(ctx, question, limit)
	}
	return nil, nil
}
func (m *mockExampleRepo) MaxSimilarity(ctx context.Context, embedding []float32) (float64, error) {
	if m.MaxSimilarityFunc != nil {
		return m.MaxSimilarityFunc(ctx, embedding)
	}
	return 0, nil
}
func (m *mockExampleRepo) IncrementUsage(ctx context.Context, ids []uuid.UUID) error {
	m.UsageIDs = append(m.UsageIDs, ids...)
	return nil
}
func (m *mockExampleRepo) RecordFeedback(ctx context.Context, ids []uuid.UUID, positive bool) error {
	m.FeedbackIDs = append(m.FeedbackIDs, ids...)
	m.FeedbackSignal = append(m.FeedbackSignal, positive)
	return nil
}

var _ repositories.ExampleRepository = (*mockExampleRepo)(nil)

func newTestRetriever(repo *mockExampleRepo, factory *llm.MockClientFactory) Retriever {
	return NewRetriever(repo, factory, "text-embedding-3-small", zap.NewNop())
}

func embeddingFactory(vec []float32) *llm.MockClientFactory {
	factory := llm.NewMockClientFactory()
	factory.MockClient.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		return vec, nil
	}
	return factory
}

func TestFindSimilar_VectorSearch(t *testing.T) {
	similarity := 0.91
	repo := &mockExampleRepo{
		SearchSimilarFunc: func(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.RankedExample, error) {
			assert.Equal(t, []float32{0.1, 0.2}, embedding)
			assert.Equal(t, PromptThreshold, threshold)
			assert.Equal(t, 3, limit)
			return []models.RankedExample{
				{ID: uuid.New(), Question: "total revenue?", SQL: "SELECT SUM(amount) FROM orders", Similarity: &similarity},
			}, nil
		},
	}

	retriever := newTestRetriever(repo, embeddingFactory([]float32{0.1, 0.2}))

	results, err := retriever.FindSimilar(context.Background(), "what is total revenue", 3, PromptThreshold)

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Similarity)
	assert.Equal(t, 0.91, *results[0].Similarity)
}

func TestFindSimilar_EmbeddingFailurePropagates(t *testing.T) {
	factory := llm.NewMockClientFactory()
	factory.MockClient.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	repo := &mockExampleRepo{}

	_, err := newTestRetriever(repo, factory).FindSimilar(context.Background(), "question", 5, PromptThreshold)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed")
}

func TestFindSimilar_StoreFailureFallsBackToLexical(t *testing.T) {
	repo := &mockExampleRepo{
		SearchSimilarFunc: func(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.RankedExample, error) {
			return nil, errors.New("vector index unavailable")
		},
		SearchLexicalFunc: func(ctx context.Context, question string, limit int) ([]models.RankedExample, error) {
			return []models.RankedExample{
				{ID: uuid.New(), Question: "revenue by region", SQL: "SELECT region, SUM(amount) FROM orders GROUP BY region"},
			}, nil
		},
	}

	results, err := newTestRetriever(repo, embeddingFactory([]float32{0.5})).
		FindSimilar(context.Background(), "revenue", 5, PromptThreshold)

	require.NoError(t, err)
	require.Len(t, results, 1)
	// Lexical fallback carries no similarity score.
	assert.Nil(t, results[0].Similarity)
}

func TestFindSimilar_DefaultLimit(t *testing.T) {
	var gotLimit int
	repo := &mockExampleRepo{
		SearchSimilarFunc: func(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.RankedExample, error) {
			gotLimit = limit
			return nil, nil
		},
	}

	_, err := newTestRetriever(repo, embeddingFactory([]float32{0.5})).
		FindSimilar(context.Background(), "q", 0, PromptThreshold)

	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, gotLimit)
}

func TestLearnFromConversation_StoresSynthesizedExample(t *testing.T) {
	repo := &mockExampleRepo{}
	factory := embeddingFactory([]float32{0.3, 0.4})
	factory.MockClient.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: `"How many users signed up last month?"`}, nil
	}

	turns := []prompts.ConversationTurn{
		{Question: "signups?", SQL: "SELECT COUNT(*) FROM users", Response: "42 users signed up."},
	}

	id, err := newTestRetriever(repo, factory).
		LearnFromConversation(context.Background(), turns, "SELECT COUNT(*) FROM users WHERE created_at >= date('now', '-1 month')")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.Len(t, repo.Created, 1)

	example := repo.Created[0]
	assert.Equal(t, "How many users signed up last month?", example.Question)
	assert.Equal(t, LearnedQualityScore, example.QualityScore)
	assert.True(t, example.IsVerified)
}

func TestLearnFromConversation_SkipsNearDuplicate(t *testing.T) {
	repo := &mockExampleRepo{
		MaxSimilarityFunc: func(ctx context.Context, embedding []float32) (float64, error) {
			return DuplicateThreshold, nil
		},
	}
	factory := embeddingFactory([]float32{0.3})
	factory.MockClient.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: "How many users are there?"}, nil
	}

	turns := []prompts.ConversationTurn{{Question: "users?", SQL: "SELECT COUNT(*) FROM users"}}

	id, err := newTestRetriever(repo, factory).
		LearnFromConversation(context.Background(), turns, "SELECT COUNT(*) FROM users")

	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)
	assert.Empty(t, repo.Created)
}

func TestLearnFromConversation_EmptyInputsSkip(t *testing.T) {
	repo := &mockExampleRepo{}
	retriever := newTestRetriever(repo, llm.NewMockClientFactory())

	id, err := retriever.LearnFromConversation(context.Background(), nil, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)

	id, err = retriever.LearnFromConversation(context.Background(),
		[]prompts.ConversationTurn{{Question: "q"}}, "   ")
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)
}

func TestAddExample(t *testing.T) {
	repo := &mockExampleRepo{}

	id, err := newTestRetriever(repo, embeddingFactory([]float32{1, 2, 3})).
		AddExample(context.Background(), "top customers?", "SELECT name FROM customers ORDER BY revenue DESC LIMIT 10", 1.0, true)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.Len(t, repo.Created, 1)
	assert.Equal(t, []float32{1, 2, 3}, repo.Created[0].Embedding)
	assert.Equal(t, 1.0, repo.Created[0].QualityScore)
}

func TestRecordUsageAndFeedback(t *testing.T) {
	repo := &mockExampleRepo{}
	retriever := newTestRetriever(repo, llm.NewMockClientFactory())

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	require.NoError(t, retriever.RecordUsage(context.Background(), ids))
	assert.Equal(t, ids, repo.UsageIDs)

	require.NoError(t, retriever.RecordFeedback(context.Background(), ids[:1], true))
	assert.Equal(t, []bool{true}, repo.FeedbackSignal)
}
