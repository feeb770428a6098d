// Package server assembles the HTTP API surface of the engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/overtop/tradebrain/internal/domain"
	"github.com/overtop/tradebrain/internal/server/handler"
	"github.com/overtop/tradebrain/internal/server/middleware"
	"github.com/overtop/tradebrain/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
	RateLimit   int    // requests per window per client; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Ingest   *handler.IngestHandler
	Rules    *handler.RuleHandler
	Config   *handler.ConfigHandler
	Status   *handler.StatusHandler
	Analysis *handler.AnalysisHandler
}

// Server is the headless HTTP + WebSocket API for the engine.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. wsHub and
// limiter are optional.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("POST /api/trading/log", handlers.Ingest.LogEvent)

	mux.HandleFunc("GET /api/trading/config", handlers.Config.GetConfig)
	mux.HandleFunc("POST /api/trading/config", handlers.Config.UpdateParams)

	mux.HandleFunc("GET /api/trading/rules", handlers.Rules.ListRules)
	mux.HandleFunc("POST /api/trading/rules", handlers.Rules.SubmitRule)
	mux.HandleFunc("DELETE /api/trading/rules/{id}", handlers.Rules.DisableRule)

	mux.HandleFunc("GET /api/trading/status", handlers.Status.GetStatus)
	mux.HandleFunc("POST /api/trading/analyze", handlers.Analysis.TriggerAnalysis)
	mux.HandleFunc("GET /api/trading/report", handlers.Analysis.GetReport)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening. It blocks until the server errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
