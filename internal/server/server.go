// Package server provides the HTTP server and routing for the suitability
// analysis service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/config"
	"github.com/clearfolio/suitability/internal/events"
	"github.com/clearfolio/suitability/internal/modules/deepdive"
	"github.com/clearfolio/suitability/internal/pipeline"
	"github.com/clearfolio/suitability/internal/reports"
)

// Config holds everything the server needs, wired in main.
type Config struct {
	Log        zerolog.Logger
	Config     *config.Config
	Runner     *pipeline.Runner
	Comparator *pipeline.Comparator
	DeepDive   *deepdive.Manager
	Reports    *reports.Repository
	Bus        *events.Bus
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	runner         *pipeline.Runner
	comparator     *pipeline.Comparator
	deepDive       *deepdive.Manager
	reports        *reports.Repository
	systemHandlers *SystemHandlers
	eventsStream   *EventsStreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		runner:         cfg.Runner,
		comparator:     cfg.Comparator,
		deepDive:       cfg.DeepDive,
		reports:        cfg.Reports,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.Config.DataDir),
		eventsStream:   NewEventsStreamHandler(cfg.Bus, cfg.Log),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/events", s.eventsStream.ServeHTTP)

		r.Post("/analyze", s.handleAnalyze)
		r.Post("/compare", s.handleCompare)

		r.Post("/deepdive", s.handleDeepDiveStart)
		r.Post("/deepdive/{sessionID}/ask", s.handleDeepDiveAsk)

		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{runID}", s.handleGetReport)

		r.Get("/health", s.systemHandlers.HandleHealth)
	})
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
