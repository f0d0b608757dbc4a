// Package app assembles the store, the schema registry and the domain
// services from a configuration.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	backlogdb "github.com/saulfrancisco-ruizacevedo/go-backlogdb"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/config"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/importer"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/logging"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/mal"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/password"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/schemas"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/shows"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/users"
)

// App holds the assembled components.
type App struct {
	Config   *config.Config
	Store    *backlogdb.Store
	Schemas  *schemas.Registry
	Users    *users.Service
	Shows    *shows.Service
	MAL      *mal.Client
	Importer *importer.Importer

	executor *backlogdb.Neo4jExecutor
	log      zerolog.Logger
}

// Open configures the global logger, connects to Neo4j and assembles the
// services. The caller must Close the returned App.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	logging.Init(cfg.Logging.Logging())

	exec, err := backlogdb.NewNeo4jExecutor(cfg.Neo4j.Connection())
	if err != nil {
		return nil, err
	}
	if err := exec.Verify(ctx); err != nil {
		_ = exec.Close(ctx)
		return nil, err
	}

	a, err := New(cfg, exec)
	if err != nil {
		_ = exec.Close(ctx)
		return nil, err
	}
	a.executor = exec
	a.log.Debug().Str("uri", cfg.Neo4j.URI).Str("database", cfg.Neo4j.Database).Msg("connected to neo4j")
	return a, nil
}

// New assembles the services on top of runner without touching the network.
func New(cfg *config.Config, runner backlogdb.DBRunner) (*App, error) {
	reg, err := schemas.NewEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	hasher, err := password.NewBcrypt(cfg.Auth.BcryptRounds)
	if err != nil {
		return nil, err
	}

	store := backlogdb.NewStore(runner)
	userSvc := users.New(store, reg, hasher)
	showSvc := shows.New(store, reg)
	client := mal.NewClient(
		mal.WithBaseURL(cfg.MAL.BaseURL),
		mal.WithHTTPClient(&http.Client{Timeout: cfg.MAL.Timeout}),
		mal.WithRateLimit(rate.Limit(cfg.MAL.RequestsPerSecond), 1),
		mal.WithBreaker(cfg.MAL.BreakerThreshold, cfg.MAL.BreakerTimeout),
		mal.WithMaxPages(cfg.MAL.MaxPages),
	)

	return &App{
		Config:   cfg,
		Store:    store,
		Schemas:  reg,
		Users:    userSvc,
		Shows:    showSvc,
		MAL:      client,
		Importer: importer.New(client, showSvc, userSvc),
		log:      logging.Component("app"),
	}, nil
}

// Close releases the Neo4j driver, if Open created one.
func (a *App) Close(ctx context.Context) error {
	if a.executor == nil {
		return nil
	}
	return a.executor.Close(ctx)
}
