// Package api exposes the read-only HTTP surface: health, recent events,
// group summaries, the latest report and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	handler "github.com/newthinker/pulse/internal/api/handler/api"
	"github.com/newthinker/pulse/internal/api/response"
	"github.com/newthinker/pulse/internal/metrics"
	"github.com/newthinker/pulse/internal/storage/signal"
)

// Server represents the HTTP server for pulse
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	MetricsPath string
}

// Dependencies are the read models the handlers serve from.
type Dependencies struct {
	SignalStore signal.Store
	Summaries   handler.SummarySource
	// Reports is optional; /api/report is not mounted without it.
	Reports handler.ReportReader
	// Metrics is optional; without it neither /metrics nor request metrics are served.
	Metrics *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.SignalStore == nil || deps.Summaries == nil {
		return nil, fmt.Errorf("api: signal store and summary source are required")
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	signals := handler.NewSignalsHandler(deps.SignalStore)
	summaries := handler.NewSummariesHandler(deps.Summaries)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/signals", signals.List)
	s.mux.HandleFunc("GET /api/signals/{id}", signals.GetByID)
	s.mux.HandleFunc("GET /api/summaries", summaries.List)

	if deps.Reports != nil {
		s.mux.HandleFunc("GET /api/report", handler.NewReportHandler(deps.Reports).Latest)
	}
	if deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, deps.Metrics.Handler())
	}
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
