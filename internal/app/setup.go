package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salmanfarse/folio/db"
	"github.com/salmanfarse/folio/internal/api"
	"github.com/salmanfarse/folio/internal/catalog"
	"github.com/salmanfarse/folio/internal/chat"
	"github.com/salmanfarse/folio/internal/config"
	"github.com/salmanfarse/folio/internal/github"
	"github.com/salmanfarse/folio/internal/knowledge"
	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/model"
	"github.com/salmanfarse/folio/internal/observability"
	"github.com/salmanfarse/folio/internal/retrieval"
	"github.com/salmanfarse/folio/internal/session"
	"github.com/salmanfarse/folio/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = log.New(log.Config{JSON: cfg.LogJSON})
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.otelShutdown = shutdown

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	a.Postgres, a.Sessions = provideSessionStore(pool, cfg, logger)
	a.Knowledge = knowledge.New(pool, logger)

	cat, err := catalog.Load(cfg.ProjectsFile, cfg.GitHubOwner)
	if err != nil {
		return nil, fmt.Errorf("loading project catalog: %w", err)
	}
	a.Catalog = cat

	a.GitHub = github.NewClient(cfg.GitHubToken, logger)
	a.Model = model.NewOpenAI(cfg.OpenAIAPIKey, cfg.ModelName, cfg.EmbedderModel, cfg.Temperature, logger)

	registry, err := provideTools(a, logger)
	if err != nil {
		return nil, err
	}

	orchestrator, err := provideOrchestrator(a, registry, logger)
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orchestrator

	server, err := api.NewServer(api.ServerConfig{
		Logger:       logger,
		Orchestrator: orchestrator,
		Store:        a.Sessions,
		RateLimit:    cfg.RateLimit,
		RateWindow:   cfg.RateWindow,
		CORSOrigins:  cfg.CORSOrigins,
		TrustProxy:   cfg.TrustProxy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	a.Server = server

	return a, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideSessionStore builds the resilient session store: PostgreSQL
// primary with an in-memory fallback so conversations survive a
// database outage for the life of the process.
func provideSessionStore(pool *pgxpool.Pool, cfg *config.Config, logger log.Logger) (*session.PostgresStore, session.Store) {
	primary := session.NewPostgresStore(pool, cfg.MaxHistory, cfg.SessionTTL, logger)
	fallback := session.NewMemoryStore(logger,
		session.WithMaxHistory(cfg.MaxHistory),
		session.WithTTL(cfg.SessionTTL),
	)
	return primary, session.NewResilient(primary, fallback, logger)
}

// provideTools assembles the tool catalog the model can call during a
// conversation: repository file reads, repository structure summaries,
// and live website reads.
func provideTools(a *App, logger log.Logger) (*tools.Registry, error) {
	readFile, err := tools.NewReadFile(a.GitHub, a.Config.GitHubOwner)
	if err != nil {
		return nil, fmt.Errorf("creating read_github_file tool: %w", err)
	}

	repoCache := retrieval.NewCache[tools.RepoSummary](logger,
		retrieval.WithTTL[tools.RepoSummary](a.Config.CacheTTL),
	)
	repoStructure, err := tools.NewRepoStructure(a.GitHub, a.Config.GitHubOwner, repoCache)
	if err != nil {
		return nil, fmt.Errorf("creating get_repo_structure tool: %w", err)
	}

	readWebsite, err := tools.NewReadWebsite(nil)
	if err != nil {
		return nil, fmt.Errorf("creating read_website tool: %w", err)
	}

	return tools.NewRegistry(logger, readFile, repoStructure, readWebsite), nil
}

// provideOrchestrator wires the chat pipeline around the shared stores.
func provideOrchestrator(a *App, registry *tools.Registry, logger log.Logger) (*chat.Orchestrator, error) {
	cfg := a.Config

	cache := retrieval.NewCache[[]retrieval.Chunk](logger,
		retrieval.WithTTL[[]retrieval.Chunk](cfg.CacheTTL),
	)
	retriever := retrieval.NewRetriever(a.Model, a.Knowledge, cache, cfg.TopK, logger)

	return chat.New(chat.Config{
		Store:     a.Sessions,
		Resolver:  chat.NewResolver(a.Sessions, a.Catalog, logger),
		Retriever: retriever,
		Prompts:   chat.NewPromptBuilder(a.Catalog),
		Loop:      chat.NewToolLoop(a.Model, registry, cfg.MaxToolLoops, logger),
		Client:    a.Model,
		Logger:    logger,
	})
}
