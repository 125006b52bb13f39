package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/prompts"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
	"github.com/querypilot/querypilot-engine/pkg/services/agent"
	"github.com/querypilot/querypilot-engine/pkg/services/progress"
	"github.com/querypilot/querypilot-engine/pkg/services/retrieval"
)

// ProcessQueryRequest is the entry-point input. ConnectionID is mandatory;
// ThreadID empty starts a new thread. LLMProvider is a per-request
// override of the configured default.
type ProcessQueryRequest struct {
	Query        string
	ThreadID     *uuid.UUID
	ConnectionID uuid.UUID
	LLMProvider  string
	Locale       string
	Timezone     string
}

// ThreadService is the conversation orchestration surface consumed by the
// request layer.
type ThreadService interface {
	// ProcessQuery runs the full workflow for one user question and
	// returns the thread with the finished interaction.
	ProcessQuery(ctx context.Context, req *ProcessQueryRequest) (*models.Thread, error)

	// GetThread returns one thread; deep loads nested interactions with
	// their results and visualizations.
	GetThread(ctx context.Context, id uuid.UUID, deep bool) (*models.Thread, error)

	// ListThreads returns recent threads ordered by last update.
	ListThreads(ctx context.Context, limit int) ([]*models.Thread, error)

	// DeleteThread removes a thread and everything under it.
	DeleteThread(ctx context.Context, id uuid.UUID) error

	// RateQueryResult records the user's verdict on an interaction and,
	// for helpful succeeded interactions, feeds the example learning path.
	RateQueryResult(ctx context.Context, threadID, interactionID uuid.UUID, isHelpful bool, feedback *string) (bool, error)
}

type threadService struct {
	threadRepo      repositories.ThreadRepository
	interactionRepo repositories.InteractionRepository
	sqlResultRepo   repositories.SqlResultRepository
	vizRepo         repositories.VisualizationRepository
	connectionRepo  repositories.ConnectionRepository
	retriever       retrieval.Retriever
	workflow        *agent.Workflow
	publisher       progress.Publisher
	logger          *zap.Logger
}

// NewThreadService creates a new ThreadService.
func NewThreadService(
	threadRepo repositories.ThreadRepository,
	interactionRepo repositories.InteractionRepository,
	sqlResultRepo repositories.SqlResultRepository,
	vizRepo repositories.VisualizationRepository,
	connectionRepo repositories.ConnectionRepository,
	retriever retrieval.Retriever,
	workflow *agent.Workflow,
	publisher progress.Publisher,
	logger *zap.Logger,
) ThreadService {
	return &threadService{
		threadRepo:      threadRepo,
		interactionRepo: interactionRepo,
		sqlResultRepo:   sqlResultRepo,
		vizRepo:         vizRepo,
		connectionRepo:  connectionRepo,
		retriever:       retriever,
		workflow:        workflow,
		publisher:       publisher,
		logger:          logger.Named("threads"),
	}
}

var _ ThreadService = (*threadService)(nil)

func (s *threadService) ProcessQuery(ctx context.Context, req *ProcessQueryRequest) (*models.Thread, error) {
	if req.ConnectionID == uuid.Nil {
		return nil, apperrors.ErrConnectionRequired
	}
	if _, err := s.connectionRepo.GetByID(ctx, req.ConnectionID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: connection %s", apperrors.ErrInvalidInput, req.ConnectionID)
		}
		return nil, err
	}

	thread, err := s.resolveThread(ctx, req)
	if err != nil {
		return nil, err
	}

	// Created eagerly so a mid-workflow failure still leaves an auditable
	// record.
	interaction := &models.Interaction{
		ThreadID:        thread.ID,
		Query:           req.Query,
		ExecutionStatus: models.StatusPending,
	}
	if err := s.interactionRepo.Create(ctx, interaction); err != nil {
		return nil, err
	}

	state := &agent.AgentState{
		ThreadID:      thread.ID,
		InteractionID: interaction.ID,
		ConnectionID:  req.ConnectionID,
		Query:         req.Query,
		LLMProvider:   req.LLMProvider,
		Locale:        req.Locale,
		Timezone:      req.Timezone,
	}
	if thread.Topic != nil {
		state.Topic = *thread.Topic
	}

	tracker := progress.NewTracker(thread.ID, s.publisher, s.logger)

	start := time.Now()
	final, err := s.workflow.Run(ctx, state, tracker)
	if err != nil {
		return nil, err
	}

	if err := s.persistOutcome(ctx, thread, interaction.ID, final, start); err != nil {
		return nil, err
	}

	tracker.Complete(ctx, "Done")

	return s.GetThread(ctx, thread.ID, true)
}

func (s *threadService) resolveThread(ctx context.Context, req *ProcessQueryRequest) (*models.Thread, error) {
	if req.ThreadID != nil {
		return s.threadRepo.GetByID(ctx, *req.ThreadID)
	}

	thread := &models.Thread{
		ConnectionID: req.ConnectionID,
		Locale:       req.Locale,
		Timezone:     req.Timezone,
	}
	if err := s.threadRepo.Create(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// persistOutcome writes final workflow state back into the interaction and
// thread records. Failures here are infrastructure errors surfaced to the
// caller; the graph itself has already finished.
func (s *threadService) persistOutcome(ctx context.Context, thread *models.Thread, interactionID uuid.UUID, final *agent.AgentState, start time.Time) error {
	status := final.ExecutionStatus
	if status == "" {
		status = models.StatusFailed
	}

	durationMs := final.DurationMs
	if durationMs == 0 {
		durationMs = time.Since(start).Milliseconds()
	}

	var errMsg *string
	if final.ErrorMessage != "" {
		errMsg = &final.ErrorMessage
	}

	fin := &repositories.InteractionFinalization{
		ExecutionStatus: status,
		Response:        final.Response,
		DurationMs:      &durationMs,
		ErrorMessage:    errMsg,
		UsedExampleIDs:  final.UsedExampleIDs,
		SimpleMessages:  final.SimpleMessages,
	}
	if err := s.interactionRepo.Finalize(ctx, interactionID, fin); err != nil {
		return fmt.Errorf("failed to persist interaction outcome: %w", err)
	}

	if final.TopicGenerated && thread.Topic == nil && final.Topic != "" {
		if err := s.threadRepo.UpdateTopic(ctx, thread.ID, final.Topic); err != nil {
			return fmt.Errorf("failed to update thread topic: %w", err)
		}
	} else if err := s.threadRepo.Touch(ctx, thread.ID); err != nil {
		return fmt.Errorf("failed to touch thread: %w", err)
	}

	if status == models.StatusSuccess && len(final.UsedExampleIDs) > 0 {
		if err := s.retriever.RecordUsage(ctx, final.UsedExampleIDs); err != nil {
			s.logger.Warn("failed to record example usage",
				zap.String("thread_id", thread.ID.String()),
				zap.Error(err))
		}
	}

	return nil
}

func (s *threadService) GetThread(ctx context.Context, id uuid.UUID, deep bool) (*models.Thread, error) {
	thread, err := s.threadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !deep {
		return thread, nil
	}

	interactions, err := s.interactionRepo.ListByThread(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, interaction := range interactions {
		if interaction.SqlResultID != nil {
			if sqlResult, err := s.sqlResultRepo.GetByID(ctx, *interaction.SqlResultID); err == nil {
				interaction.SqlResult = sqlResult
			}
		}
		if interaction.VisualizationID != nil {
			if viz, err := s.vizRepo.GetByID(ctx, *interaction.VisualizationID); err == nil {
				interaction.Visualization = viz
			}
		}
	}
	thread.Interactions = interactions
	return thread, nil
}

func (s *threadService) ListThreads(ctx context.Context, limit int) ([]*models.Thread, error) {
	return s.threadRepo.List(ctx, limit)
}

func (s *threadService) DeleteThread(ctx context.Context, id uuid.UUID) error {
	return s.threadRepo.Delete(ctx, id)
}

func (s *threadService) RateQueryResult(ctx context.Context, threadID, interactionID uuid.UUID, isHelpful bool, feedback *string) (bool, error) {
	interaction, err := s.interactionRepo.GetByID(ctx, interactionID)
	if err != nil {
		return false, err
	}
	if interaction.ThreadID != threadID {
		return false, fmt.Errorf("%w: interaction does not belong to thread", apperrors.ErrInvalidInput)
	}

	rating := models.RatingNotHelpful
	if isHelpful {
		rating = models.RatingHelpful
	}
	if err := s.interactionRepo.SetRating(ctx, interactionID, rating, feedback); err != nil {
		return false, err
	}

	if len(interaction.UsedExampleIDs) > 0 {
		if err := s.retriever.RecordFeedback(ctx, interaction.UsedExampleIDs, isHelpful); err != nil {
			s.logger.Warn("failed to record example feedback",
				zap.String("interaction_id", interactionID.String()),
				zap.Error(err))
		}
	}

	if isHelpful && interaction.ExecutionStatus == models.StatusSuccess {
		if err := s.learnFromInteraction(ctx, threadID, interaction); err != nil {
			s.logger.Warn("example learning failed",
				zap.String("interaction_id", interactionID.String()),
				zap.Error(err))
		}
	}

	return true, nil
}

// learnFromInteraction distills a helpful conversation into a reusable
// example paired with the interaction's final SQL.
func (s *threadService) learnFromInteraction(ctx context.Context, threadID uuid.UUID, rated *models.Interaction) error {
	if rated.SqlResultID == nil {
		return nil
	}
	sqlResult, err := s.sqlResultRepo.GetByID(ctx, *rated.SqlResultID)
	if err != nil {
		return err
	}

	interactions, err := s.interactionRepo.ListByThread(ctx, threadID)
	if err != nil {
		return err
	}

	turns := make([]prompts.ConversationTurn, 0, len(interactions))
	for _, interaction := range interactions {
		turns = append(turns, prompts.ConversationTurn{
			Question: interaction.Query,
			Response: interaction.Response,
		})
		if interaction.ID == rated.ID {
			break
		}
	}

	_, err = s.retriever.LearnFromConversation(ctx, turns, sqlResult.SQL)
	return err
}
