package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/datasource"
	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/logging"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
)

// ConnectionService manages target database connections.
type ConnectionService interface {
	Create(ctx context.Context, conn *models.Connection) (*models.Connection, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Connection, error)
	List(ctx context.Context) ([]*models.Connection, error)
	Update(ctx context.Context, conn *models.Connection) (*models.Connection, error)

	// Delete refuses to remove a connection that threads still reference.
	Delete(ctx context.Context, id uuid.UUID) error

	// Test opens the connection and runs a probe query.
	Test(ctx context.Context, id uuid.UUID) error
}

type connectionService struct {
	connectionRepo repositories.ConnectionRepository
	threadRepo     repositories.ThreadRepository
	logger         *zap.Logger
}

// NewConnectionService creates a new ConnectionService.
func NewConnectionService(
	connectionRepo repositories.ConnectionRepository,
	threadRepo repositories.ThreadRepository,
	logger *zap.Logger,
) ConnectionService {
	return &connectionService{
		connectionRepo: connectionRepo,
		threadRepo:     threadRepo,
		logger:         logger.Named("connections"),
	}
}

var _ ConnectionService = (*connectionService)(nil)

func validateConnection(conn *models.Connection) error {
	if conn.Name == "" {
		return fmt.Errorf("%w: connection name is required", apperrors.ErrInvalidInput)
	}
	if !conn.Type.Valid() {
		return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedDatabase, conn.Type)
	}
	if conn.Database == "" {
		return fmt.Errorf("%w: database is required", apperrors.ErrInvalidInput)
	}
	return nil
}

func (s *connectionService) Create(ctx context.Context, conn *models.Connection) (*models.Connection, error) {
	if err := validateConnection(conn); err != nil {
		return nil, err
	}
	if err := s.connectionRepo.Create(ctx, conn); err != nil {
		return nil, err
	}
	s.logger.Info("connection created",
		zap.String("connection_id", conn.ID.String()),
		zap.String("type", string(conn.Type)))
	return conn, nil
}

func (s *connectionService) Get(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	return s.connectionRepo.GetByID(ctx, id)
}

func (s *connectionService) List(ctx context.Context) ([]*models.Connection, error) {
	return s.connectionRepo.List(ctx)
}

func (s *connectionService) Update(ctx context.Context, conn *models.Connection) (*models.Connection, error) {
	if err := validateConnection(conn); err != nil {
		return nil, err
	}

	// Blank password on update keeps the stored credential.
	if conn.Password == "" {
		existing, err := s.connectionRepo.GetByID(ctx, conn.ID)
		if err != nil {
			return nil, err
		}
		conn.Password = existing.Password
	}

	if err := s.connectionRepo.Update(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *connectionService) Delete(ctx context.Context, id uuid.UUID) error {
	count, err := s.threadRepo.CountByConnection(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d threads reference this connection", apperrors.ErrConnectionInUse, count)
	}
	return s.connectionRepo.Delete(ctx, id)
}

func (s *connectionService) Test(ctx context.Context, id uuid.UUID) error {
	conn, err := s.connectionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	executor, err := datasource.NewQueryExecutor(ctx, conn)
	if err != nil {
		// Driver errors may echo the DSN back, credentials included.
		s.logger.Warn("connection test failed to open",
			zap.String("connection_id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		return err
	}
	defer executor.Close()

	if err := executor.Test(ctx); err != nil {
		s.logger.Warn("connection test probe failed",
			zap.String("connection_id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		return err
	}
	return nil
}
