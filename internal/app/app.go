package app

import (
	"context"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/handlers"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/services/answer"
	"github.com/ternarybob/respondeo/internal/services/answercache"
	"github.com/ternarybob/respondeo/internal/services/knowledge"
	"github.com/ternarybob/respondeo/internal/services/llm"
	"github.com/ternarybob/respondeo/internal/services/query"
	"github.com/ternarybob/respondeo/internal/services/relevance"
	"github.com/ternarybob/respondeo/internal/sources"
	"github.com/ternarybob/respondeo/internal/storage/badger"
	"github.com/ternarybob/respondeo/internal/worker"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// Pipeline services
	KnowledgeCache *knowledge.Cache
	AnswerCache    *answercache.Cache
	LLMService     interfaces.LLMService
	AnswerService  *answer.Service
	WorkerPool     *worker.Pool

	// HTTP handlers
	AskHandler    *handlers.AskHandler
	CacheHandler  *handlers.CacheHandler
	StatusHandler *handlers.StatusHandler

	closers []func() error
}

// New creates the application with all services wired in dependency
// order: storage, knowledge sources, caches, LLM, worker pool,
// answering pipeline, handlers.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	ctx := context.Background()

	storageManager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager
	a.closers = append(a.closers, storageManager.Close)

	if mgr, ok := storageManager.(*badger.Manager); ok {
		mgr.SeedSecrets(ctx, os.Environ())
	}

	knowledgeSources, err := a.buildSources(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if len(knowledgeSources) == 0 {
		a.Close()
		return nil, fmt.Errorf("no knowledge sources configured")
	}

	a.KnowledgeCache = knowledge.NewCache(&config.Knowledge, knowledgeSources, logger)
	a.AnswerCache = answercache.NewCache(&config.Cache, logger)

	llmService, err := llm.NewLLMService(config, storageManager, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.LLMService = llmService
	a.closers = append(a.closers, llmService.Close)

	a.WorkerPool = worker.NewPool(config.Workers.Count, logger)
	a.WorkerPool.Start()
	a.closers = append(a.closers, func() error {
		a.WorkerPool.Stop()
		return nil
	})

	a.AnswerService = answer.NewService(
		&config.LLM,
		a.KnowledgeCache,
		relevance.NewFilter(&config.Relevance, logger),
		query.NewNormalizer(),
		a.AnswerCache,
		llmService,
		a.WorkerPool,
		logger,
	)

	adminKey := config.Admin.APIKey
	a.AskHandler = handlers.NewAskHandler(a.AnswerService, logger)
	a.CacheHandler = handlers.NewCacheHandler(a.AnswerService, adminKey, logger)
	a.StatusHandler = handlers.NewStatusHandler(a.AnswerService, a.AnswerService, logger)

	logger.Info().
		Int("sources", len(knowledgeSources)).
		Str("provider", string(config.LLM.DefaultProvider)).
		Msg("Application initialized")

	return a, nil
}

// buildSources creates the configured knowledge sources in priority
// order. A source whose configuration is present but broken fails
// startup; an unconfigured source is skipped.
func (a *App) buildSources(ctx context.Context) ([]interfaces.KnowledgeSource, error) {
	var built []interfaces.KnowledgeSource

	for _, name := range a.Config.Sources.Priority {
		switch name {
		case "postgres":
			if a.Config.Sources.Postgres.URL == "" {
				continue
			}
			source, err := sources.NewPostgresSource(ctx, &a.Config.Sources.Postgres, a.Logger)
			if err != nil {
				return nil, fmt.Errorf("postgres source: %w", err)
			}
			a.addSourceCloser(source)
			built = append(built, source)

		case "rest":
			if a.Config.Sources.REST.BaseURL == "" {
				continue
			}
			source, err := sources.NewRESTSource(&a.Config.Sources.REST, a.Logger)
			if err != nil {
				return nil, fmt.Errorf("rest source: %w", err)
			}
			built = append(built, source)

		case "s3":
			if a.Config.Sources.S3.Bucket == "" {
				continue
			}
			source, err := sources.NewS3Source(ctx, &a.Config.Sources.S3, a.Logger)
			if err != nil {
				return nil, fmt.Errorf("s3 source: %w", err)
			}
			built = append(built, source)

		case "mongo":
			if a.Config.Sources.Mongo.URI == "" {
				continue
			}
			source, err := sources.NewMongoSource(ctx, &a.Config.Sources.Mongo, a.Logger)
			if err != nil {
				return nil, fmt.Errorf("mongo source: %w", err)
			}
			a.addSourceCloser(source)
			built = append(built, source)

		default:
			return nil, fmt.Errorf("unknown knowledge source '%s' in sources.priority", name)
		}
	}

	return built, nil
}

func (a *App) addSourceCloser(source interfaces.KnowledgeSource) {
	if closer, ok := source.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}
}

// Close releases all application resources in reverse wiring order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close component")
		}
	}
	a.closers = nil
}
