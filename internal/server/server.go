// Package server exposes the activity service over a local HTTP API used by
// the browser instrumentation and the history views.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/runnerr0/historylens/internal/activity"
	"github.com/runnerr0/historylens/internal/config"
	"github.com/runnerr0/historylens/internal/logger"
)

// Deps are the shared dependencies of every handler.
type Deps struct {
	Service   *activity.Service
	Logger    logger.Logger
	Version   string
	StartTime time.Time
	Now       func() time.Time // defaults to time.Now
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http   *http.Server
	logger logger.Logger
}

// New builds the HTTP server: router, middlewares and routes.
func New(cfg *config.Config, log logger.Logger, d Deps) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if d.Logger == nil {
		d.Logger = log
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.StartTime.IsZero() {
		d.StartTime = d.Now()
	}

	s := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(cfg, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute, // recategorization may take a while
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{http: s, logger: log}
}

func newRouter(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(d.Logger))

	r.Get("/healthz", healthz(d))

	r.Route("/api", func(api chi.Router) {
		if cfg.Daemon.AuthToken != "" {
			api.Use(requireToken(cfg.Daemon.AuthToken))
		}
		api.Use(limitBody(cfg.Daemon.MaxRequestSize))

		api.Post("/activity", submitActivity(d))
		api.Get("/activity", queryActivity(d))
		api.Get("/activity/recent", recentActivity(d))
		api.Get("/activity/entry", getEntry(d))
		api.Post("/suppress", suppressURL(d))

		api.Get("/report/weekly", weeklyReport(d))
		api.Get("/stats", stats(d))

		api.Get("/rules", listRules(d))
		api.Put("/rules", replaceRules(d))
		api.Post("/rules", addRule(d))
		api.Get("/rules/suggest", suggestPattern(d))
		api.Get("/categories", listCategories(d))
		api.Post("/recategorize", recategorizeAll(d))
	})

	return r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start runs the HTTP server and blocks until it fails or is shut down.
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server within the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
