package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/datasource"
	_ "github.com/querypilot/querypilot-engine/pkg/adapters/datasource/mssql"
	_ "github.com/querypilot/querypilot-engine/pkg/adapters/datasource/mysql"
	_ "github.com/querypilot/querypilot-engine/pkg/adapters/datasource/postgres"
	_ "github.com/querypilot/querypilot-engine/pkg/adapters/datasource/sqlite"
	"github.com/querypilot/querypilot-engine/pkg/config"
	"github.com/querypilot/querypilot-engine/pkg/database"
	"github.com/querypilot/querypilot-engine/pkg/handlers"
	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/middleware"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
	"github.com/querypilot/querypilot-engine/pkg/services"
	"github.com/querypilot/querypilot-engine/pkg/services/agent"
	"github.com/querypilot/querypilot-engine/pkg/services/progress"
	"github.com/querypilot/querypilot-engine/pkg/services/retrieval"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.String("llm_provider", cfg.LLM.DefaultProvider),
		zap.Strings("datasource_types", datasourceTypeNames()))

	if err := database.RunMigrations(&cfg.Database, "migrations", logger); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}

	threadRepo := repositories.NewThreadRepository(db)
	interactionRepo := repositories.NewInteractionRepository(db)
	sqlResultRepo := repositories.NewSqlResultRepository(db)
	vizRepo := repositories.NewVisualizationRepository(db)
	connectionRepo := repositories.NewConnectionRepository(db)
	exampleRepo := repositories.NewExampleRepository(db)
	checkpointRepo := repositories.NewCheckpointRepository(db)

	llmFactory := llm.NewClientFactory(&cfg.LLM, cfg.Workflow.MaxToolIterations, logger)
	retriever := retrieval.NewRetriever(exampleRepo, llmFactory, cfg.LLM.EmbeddingModel, logger)

	var checkpointerInit agent.CheckpointerInit
	if cfg.Workflow.CheckpointingEnabled {
		checkpointerInit = func() (agent.Checkpointer, error) {
			return agent.NewPostgresCheckpointer(checkpointRepo), nil
		}
	}
	workflow := agent.NewWorkflow(
		connectionRepo, interactionRepo, sqlResultRepo, vizRepo,
		retriever, llmFactory, checkpointerInit, logger)

	var publisher progress.Publisher = progress.NopPublisher{}
	if redisClient != nil {
		publisher = progress.NewRedisPublisher(redisClient, logger)
	}

	threadService := services.NewThreadService(
		threadRepo, interactionRepo, sqlResultRepo, vizRepo, connectionRepo,
		retriever, workflow, publisher, logger)
	connectionService := services.NewConnectionService(connectionRepo, threadRepo, logger)
	exportService := services.NewExportService(threadRepo, interactionRepo, sqlResultRepo, &cfg.Export, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(threadService, logger).RegisterRoutes(mux)
	handlers.NewThreadHandler(threadService, logger).RegisterRoutes(mux)
	handlers.NewConnectionHandler(connectionService, logger).RegisterRoutes(mux)
	handlers.NewExampleHandler(retriever, exampleRepo, logger).RegisterRoutes(mux)
	handlers.NewExportHandler(exportService, logger).RegisterRoutes(mux)
	handlers.NewProgressHandler(redisClient, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: middleware.RequestLogger(logger)(mux),
	}

	go func() {
		logger.Info("starting querypilot-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func datasourceTypeNames() []string {
	registrations := datasource.RegisteredTypes()
	names := make([]string, len(registrations))
	for i, reg := range registrations {
		names[i] = string(reg.Type)
	}
	return names
}
