package bootstrap

import (
	"context"
	"fmt"

	"github.com/campusops/docvault/internal/config"
	"github.com/campusops/docvault/internal/core/ports"
	"github.com/campusops/docvault/internal/core/usecase"
	"github.com/campusops/docvault/internal/infrastructure/authz"
	"github.com/campusops/docvault/internal/infrastructure/cache"
	"github.com/campusops/docvault/internal/infrastructure/inspect"
	"github.com/campusops/docvault/internal/infrastructure/queue/nats"
	"github.com/campusops/docvault/internal/infrastructure/repository/postgres"
	"github.com/campusops/docvault/internal/infrastructure/resilience"
	"github.com/campusops/docvault/internal/infrastructure/storage/localfs"
	"github.com/campusops/docvault/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue   *nats.Queue
	Repo    ports.MetadataStore
	Metrics *metrics.HTTPServerMetrics

	Ingestor   ports.DocumentIngestor
	Reader     ports.DocumentReader
	Editor     ports.DocumentEditor
	Reconciler ports.Reconciler
	Reporter   ports.Reporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	store, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}

	policy, err := inspect.LoadPolicy(cfg.InspectionPolicy)
	if err != nil {
		return nil, fmt.Errorf("load inspection policy: %w", err)
	}
	if cfg.MaxUploadBytes > 0 {
		policy.MaxSizeBytes = cfg.MaxUploadBytes
	}
	inspector := inspect.New(policy)

	executor := resilience.NewExecutor(resilience.DefaultPolicy())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init event feed: %w", err)
	}

	m := metrics.NewHTTPServerMetrics("docvault-api")
	hits, misses := m.CacheCounters()
	metadataCache := cache.New(cache.Options{
		MaxEntries: cfg.CacheMaxEntries,
		TTL:        cfg.CacheTTL(),
		Hits:       hits,
		Misses:     misses,
	})

	authorizer := authz.NewStaticAuthorizer()

	return &App{
		Config:  cfg,
		Queue:   queue,
		Repo:    repo,
		Metrics: m,

		Ingestor:   usecase.NewUploadUseCase(inspector, store, repo, queue),
		Reader:     usecase.NewReadUseCase(repo, store, authorizer, metadataCache),
		Editor:     usecase.NewEditUseCase(repo, metadataCache, queue),
		Reconciler: usecase.NewCleanupUseCase(repo, store, queue, cfg.CleanupSafetyMargin()),
		Reporter:   usecase.NewReportUseCase(repo),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
