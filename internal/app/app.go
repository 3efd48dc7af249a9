// Package app assembles the query pipeline, chat orchestrator and archive
// from configuration. The binaries share it so the API and the terminal chat
// run exactly the same stack.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/querydesk/querydesk/internal/api"
	"github.com/querydesk/querydesk/internal/archive"
	"github.com/querydesk/querydesk/internal/chat"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/history/postgres"
	"github.com/querydesk/querydesk/internal/intent"
	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/nl2sql"
	"github.com/querydesk/querydesk/internal/pipeline"
	"github.com/querydesk/querydesk/internal/query/mariadb"
)

type App struct {
	Engine       *mariadb.Engine
	Model        llm.Client
	Pipeline     *pipeline.Service
	Classifier   *intent.Classifier
	Orchestrator *chat.Orchestrator
	Archive      *archive.Store
	History      *postgres.Repository

	db        *sqlx.DB
	historyDB *sql.DB
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := mariadb.Open(ctx, mariadb.DBConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	a := &App{db: db, Engine: mariadb.NewEngine(db, cfg.Database.QueryTimeout)}

	a.Model, err = llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init language model: %w", err)
	}

	opts := pipeline.Options{
		Engine:    a.Engine,
		Generator: nl2sql.NewGenerator(a.Model),
		View:      cfg.Database.View,
		Model:     a.Model.Model(),
		Logger:    logger,
	}
	if cfg.History.Enabled() {
		a.historyDB, err = postgres.Open(ctx, postgres.DBConfigFrom(cfg.History))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.History = postgres.NewRepository(a.historyDB)
		opts.Recorder = a.History
	}
	a.Pipeline = pipeline.NewService(opts)
	a.Classifier = intent.NewClassifier(a.Model, logger)
	a.Orchestrator = chat.NewOrchestrator(a.Classifier, a.Pipeline, a.Model, logger)

	objects, err := archive.OpenObjectStore(ctx, cfg.Archive)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init conversation archive: %w", err)
	}
	a.Archive = archive.NewStore(objects, logger)
	return a, nil
}

// APIDependencies exposes the assembled stack to the HTTP handler. Optional
// parts are left as nil interfaces when they are not configured.
func (a *App) APIDependencies(logger *slog.Logger) api.Dependencies {
	deps := api.Dependencies{
		Logger:     logger,
		Pipeline:   a.Pipeline,
		Classifier: a.Classifier,
		Chat:       a.Orchestrator,
		Archive:    a.Archive,
		Readiness: api.CombineReadinessChecks(
			api.CheckPing("database", a.Engine.Ping),
			api.CheckPing("language model", a.Model.Ping),
		),
	}
	if a.History != nil {
		deps.History = a.History
		deps.Readiness = api.CombineReadinessChecks(deps.Readiness, api.CheckPing("history", a.History.HealthCheck))
	}
	return deps
}

func (a *App) Close() {
	if a.historyDB != nil {
		_ = a.historyDB.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
