// Package http exposes the service's HTTP surface: health, metrics, and
// on-demand prediction endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/creek-flow-service/internal/domain"
	"github.com/couchcryptid/creek-flow-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// runTimeout bounds one on-demand prediction run. Sequential fetches across
// gauges and lag windows add up, so this is generous.
const runTimeout = 90 * time.Second

// PredictionRunner executes prediction runs on demand.
type PredictionRunner interface {
	RunRealTime(ctx context.Context) (pipeline.Result, error)
	RunHistorical(ctx context.Context, reference time.Time, record bool) (pipeline.Result, error)
	CheckReadiness(ctx context.Context) error
}

// HistoryProvider reads back persisted prediction records.
type HistoryProvider interface {
	Recent(ctx context.Context, limit int) ([]domain.PredictionRecord, error)
}

// Server exposes health, readiness, metrics, and prediction HTTP endpoints.
type Server struct {
	httpServer *http.Server
	runner     PredictionRunner
	history    HistoryProvider
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, runner PredictionRunner, history HistoryProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: runTimeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner:  runner,
		history: history,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /predict", s.handlePredict)
	mux.HandleFunc("GET /predict/historical", s.handlePredictHistorical)
	mux.HandleFunc("GET /predictions", s.handlePredictions)

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

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.runner.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), runTimeout)
	defer cancel()

	result, err := s.runner.RunRealTime(ctx)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPredictionResponse(result))
}

func (s *Server) handlePredictHistorical(w http.ResponseWriter, r *http.Request) {
	at := r.URL.Query().Get("at")
	reference, err := time.Parse(time.RFC3339, at)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "query parameter 'at' must be RFC3339, e.g. 2024-01-08T12:00:00Z",
		})
		return
	}
	record := r.URL.Query().Get("record") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), runTimeout)
	defer cancel()

	result, err := s.runner.RunHistorical(ctx, reference, record)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPredictionResponse(result))
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "query parameter 'limit' must be a positive integer",
			})
			return
		}
		limit = n
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("query prediction history failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	if records == nil {
		records = []domain.PredictionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": records})
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	s.logger.Error("prediction run failed", "error", err)

	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrNoReference) {
		// Upstream produced nothing usable; the service itself is fine.
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// featureValue is one entry of the prediction response. CFS is null for
// absent features; RecordedAt carries "N/A" in that case.
type featureValue struct {
	CFS        *float64 `json:"cfs"`
	RecordedAt string   `json:"recorded_at"`
}

type predictionResponse struct {
	Key          string                  `json:"recorded_at"`
	PredictedCFS float64                 `json:"predicted_cfs"`
	Features     map[string]featureValue `json:"features"`
	Order        []string                `json:"feature_order"`
	Recorded     string                  `json:"record_outcome,omitempty"`
}

func newPredictionResponse(result pipeline.Result) predictionResponse {
	features := make(map[string]featureValue, len(result.Row.Names))
	for _, name := range result.Row.Names {
		reading := result.Vector[name]
		fv := featureValue{RecordedAt: reading.DisplayTime()}
		if reading.Valid {
			cfs := reading.CFS
			fv.CFS = &cfs
		}
		features[name] = fv
	}
	return predictionResponse{
		Key:          result.Key,
		PredictedCFS: result.PredictedCFS,
		Features:     features,
		Order:        result.Row.Names,
		Recorded:     string(result.RecordOutcome),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
