// Package app provides application initialization and dependency
// injection. Setup builds the full component graph for one process:
// database pool, session stores, knowledge store, model client, tool
// catalog, chat orchestrator, and the HTTP server. App owns the
// lifecycle; call Close to release everything in reverse order.
package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salmanfarse/folio/internal/api"
	"github.com/salmanfarse/folio/internal/catalog"
	"github.com/salmanfarse/folio/internal/chat"
	"github.com/salmanfarse/folio/internal/config"
	"github.com/salmanfarse/folio/internal/github"
	"github.com/salmanfarse/folio/internal/knowledge"
	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/model"
	"github.com/salmanfarse/folio/internal/session"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	DBPool    *pgxpool.Pool
	Sessions  session.Store
	Postgres  *session.PostgresStore
	Knowledge *knowledge.Store
	Catalog   *catalog.Catalog
	GitHub    *github.Client
	Model     *model.OpenAI

	Orchestrator *chat.Orchestrator
	Server       *api.Server

	otelShutdown func(context.Context) error
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}

	return nil
}
