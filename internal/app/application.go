// Package app assembles the system: store, catalog, services, gateway and
// the HTTP server, with ordered startup and reverse-order shutdown.
package app

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"cinematch/internal/api"
	"cinematch/internal/catalog"
	"cinematch/internal/config"
	"cinematch/internal/gateway"
	"cinematch/internal/match"
	"cinematch/internal/session"
	"cinematch/internal/store"
	"cinematch/internal/voting"
)

// Application coordinates all components.
type Application struct {
	config     *config.Config
	entities   *store.Store
	hub        *gateway.Hub
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewApplication builds the full component graph. Initialization order:
// store -> catalog -> services -> gateway -> api -> HTTP server.
func NewApplication(cfg *config.Config, logger zerolog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	entities := store.New()

	movies := catalog.NewClient(catalog.Config{
		APIKey:    cfg.Catalog.APIKey,
		BaseURL:   cfg.Catalog.BaseURL,
		Language:  cfg.Catalog.Language,
		BatchSize: cfg.Catalog.BatchSize,
		CacheTTL:  cfg.Catalog.CacheTTL,
	}, logger)

	sessions := session.NewService(entities, movies, logger)
	votes := voting.NewEngine(entities, logger)
	matches := match.NewEngine(entities, movies)

	groups := gateway.NewGroups()
	hub := gateway.NewHub(entities, sessions, votes, matches, groups, logger)
	wsHandler := gateway.NewHandler(hub, originChecker(cfg.WebSocket.AllowedOrigins), logger)

	server := api.NewServer(sessions, entities, movies, groups, wsHandler, cfg.PublicURL, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      server.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		entities:   entities,
		hub:        hub,
		httpServer: httpServer,
		logger:     logger.With().Str("component", "app").Logger(),
	}, nil
}

// Start launches the hub and the HTTP listener, returning once the server
// is accepting connections.
func (app *Application) Start(ctx context.Context) error {
	app.logger.Info().Str("addr", app.httpServer.Addr).Msg("starting")

	if err := app.hub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		app.hub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		app.logger.Info().Msg("started")
		return nil
	case <-ctx.Done():
		app.hub.Stop()
		return ctx.Err()
	}
}

// Stop shuts down in reverse order: HTTP listener first, then the hub.
func (app *Application) Stop(ctx context.Context) error {
	app.logger.Info().Msg("shutting down")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.logger.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	if err := app.hub.Stop(); err != nil {
		app.logger.Warn().Err(err).Msg("gateway hub shutdown error")
	}

	app.logger.Info().Msg("shutdown complete")
	return nil
}

// Addr returns the listener address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}

// originChecker allows any origin when the list is empty, which suits
// development; production deployments set an explicit allow list.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}
