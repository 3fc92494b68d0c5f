package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// StatusReporter exposes the pipeline's operational snapshot.
type StatusReporter interface {
	Status() pipeline.Status
}

// RefreshTrigger requests an immediate poll cycle.
type RefreshTrigger interface {
	TriggerRefresh()
}

// Pipeline is the surface the ops server needs from the alert pipeline.
type Pipeline interface {
	ReadinessChecker
	StatusReporter
	RefreshTrigger
}

// EventDetailer looks a single event up by identifier, returning the feature
// with its extended properties set.
type EventDetailer interface {
	EventDetail(ctx context.Context, eventID string) (domain.Feature, error)
}

// Server exposes health, readiness, metrics, and pipeline status endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /status,
// /refresh, and /events/{id} routes.
func NewServer(addr string, p Pipeline, details EventDetailer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(p))
	mux.HandleFunc("GET /status", handleStatus(p))
	mux.HandleFunc("POST /refresh", handleRefresh(p))
	mux.HandleFunc("GET /events/{id}", s.handleEventDetail(details))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func handleStatus(reporter StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, reporter.Status())
	}
}

func handleRefresh(trigger RefreshTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		trigger.TriggerRefresh()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested"})
	}
}

// handleEventDetail proxies the upstream single-event lookup so operators can
// inspect extended attributes (status, tsunami flag, intensity) without
// constructing the upstream query by hand.
func (s *Server) handleEventDetail(details EventDetailer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		feature, err := details.EventDetail(ctx, r.PathValue("id"))
		if err != nil {
			s.logger.Warn("event detail lookup failed", "event_id", r.PathValue("id"), "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, feature)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
