// Package server provides the HTTP server and routing for TradePulse.
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

	"github.com/aristath/tradepulse/internal/database"
	"github.com/aristath/tradepulse/internal/events"
	"github.com/aristath/tradepulse/internal/modules/trades"
	"github.com/aristath/tradepulse/internal/orchestrator"
)

// Config holds server configuration
type Config struct {
	Log          zerolog.Logger
	Port         int
	DevMode      bool
	DataDir      string
	LedgerDB     *database.DB
	TradeService *trades.Service
	Orchestrator *orchestrator.Orchestrator
	EventBus     *events.Bus
}

// Server represents the HTTP server
type Server struct {
	router       *chi.Mux
	server       *http.Server
	log          zerolog.Logger
	ledgerDB     *database.DB
	tradeService *trades.Service
	orch         *orchestrator.Orchestrator
	eventBus     *events.Bus
	dataDir      string
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		log:          cfg.Log.With().Str("component", "server").Logger(),
		ledgerDB:     cfg.LedgerDB,
		tradeService: cfg.TradeService,
		orch:         cfg.Orchestrator,
		eventBus:     cfg.EventBus,
		dataDir:      cfg.DataDir,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Streaming endpoints are registered before the JSON routes so
		// the timeout middleware below does not apply to them.
		eventsStreamHandler := NewEventsStreamHandler(s.eventBus, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)

		liveHandler := NewLiveHandler(s.orch, s.log)
		r.Get("/analytics/live", liveHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/", s.handleGetAnalytics)
				r.Post("/recompute", s.handleRecompute)
				r.Delete("/cache", s.handleInvalidateCache)
				r.Get("/settings", s.handleGetSettings)
				r.Put("/settings", s.handleUpdateSettings)
			})

			r.Route("/trades", func(r chi.Router) {
				r.Get("/", s.handleListTrades)
				r.Post("/", s.handleImportTrades)
				r.Delete("/", s.handleClearTrades)
				r.Delete("/{id}", s.handleDeleteTrade)
			})

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.handleSystemStatus)
				r.Get("/database/stats", s.handleDatabaseStats)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests.
func (s *Server) Router() http.Handler {
	return s.router
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
