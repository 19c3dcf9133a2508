package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/parcelbridge/internal/graphql"
	"github.com/tournevent/parcelbridge/internal/telemetry"
	"github.com/tournevent/parcelbridge/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// Server is the HTTP server for the DPD workflow service.
type Server struct {
	port     int
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
	executor *graphql.Executor
}

// Config holds server configuration.
type Config struct {
	Port int
	// Registry receives the service metrics. Nil means the default registry.
	Registry *prometheus.Registry
}

// New creates a new server instance. Every GraphQL field runs on a fresh
// workflow obtained from workflows.
func New(cfg Config, workflows courier.Factory, logger *otelzap.Logger) *Server {
	var (
		metrics  *telemetry.Metrics
		gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		metrics = telemetry.NewMetricsWith(cfg.Registry)
		gatherer = cfg.Registry
	} else {
		metrics = telemetry.NewMetrics()
	}
	resolver := graphql.NewResolver(workflows, logger, metrics)

	return &Server{
		port:     cfg.Port,
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
		executor: graphql.NewExecutor(resolver),
	}
}

// Handler returns the HTTP routes of the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// GraphQL endpoint
	mux.HandleFunc("/graphql", s.handleGraphQL)

	return s.withRequestContext(mux)
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// withRequestContext continues incoming traces and tags every request with
// an id, generated when the caller sends none.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))

		s.logger.Ctx(ctx).Debug("Handled request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(graphql.Response{
			Errors: gqlerror.List{gqlerror.Errorf("Method not allowed, use POST")},
		})
		return
	}

	// Numbers stay json.Number so integer ID variables pass coercion.
	var req graphql.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(graphql.Response{
			Errors: gqlerror.List{gqlerror.Errorf("Invalid JSON: %s", err)},
		})
		return
	}

	resp := s.executor.Execute(r.Context(), req)
	if resp.Data == nil {
		// The document never reached execution.
		w.WriteHeader(http.StatusBadRequest)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Ctx(r.Context()).Error("Failed to write GraphQL response", zap.Error(err))
	}
}
