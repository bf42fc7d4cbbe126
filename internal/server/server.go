// Package server exposes the dashboard as JSON tables and PNG charts.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"

	"github.com/bobmcallan/finhub/internal/app"
	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/models"
)

// Server wraps the HTTP server and the dashboard pipeline.
type Server struct {
	config   *common.Config
	pipeline interfaces.PipelineService
	logger   *common.Logger
	router   chi.Router
	server   *http.Server
	cache    *cache.Cache
	today    func() models.Date
}

// NewServer creates the HTTP server for an initialized App.
func NewServer(a *app.App) *Server {
	return newServer(a.Config, a.Pipeline, a.Logger)
}

func newServer(config *common.Config, pipeline interfaces.PipelineService, logger *common.Logger) *Server {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Server{
		config:   config,
		pipeline: pipeline,
		logger:   logger,
		cache:    cache.New(config.Cache.GetTTL(), config.Cache.GetCleanup()),
		today:    models.Today,
	}
	s.router = s.routes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Msg("Starting dashboard server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
