// Command server exposes the irrigation prediction API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/aquasens/features"
	"github.com/liamcoop/aquasens/internal/auth"
	"github.com/liamcoop/aquasens/internal/config"
	"github.com/liamcoop/aquasens/internal/logger"
	"github.com/liamcoop/aquasens/internal/observability"
	"github.com/liamcoop/aquasens/predictions"
	"github.com/liamcoop/aquasens/scoring"
)

const (
	maxBodyBytes      = 1 << 20
	retryAfterSeconds = 30
	scorerRetryDelay  = 200 * time.Millisecond
)

type Server struct {
	service  *predictions.Service
	verifier *auth.Verifier
	metrics  *observability.Metrics
	opts     Options
	router   *chi.Mux
}

// Options tunes the HTTP layer.
type Options struct {
	RequestTimeout time.Duration
	SlowRequest    time.Duration
	// MetricsHandler serves /metrics. Nil disables the route.
	MetricsHandler http.Handler
}

func NewServer(service *predictions.Service, verifier *auth.Verifier, metrics *observability.Metrics, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		service:  service,
		verifier: verifier,
		metrics:  metrics,
		opts:     opts,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(s.opts.SlowRequest, s.observe))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	r.Get("/api/v1/health", s.handleHealth)
	if s.opts.MetricsHandler != nil {
		r.Handle("/metrics", s.opts.MetricsHandler)
	}

	// Everything else acts on behalf of the token's subject
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.verifier, s.respondUnauthorized))

		r.Post("/api/v1/predictions", s.handleCreatePrediction)
		r.Get("/api/v1/history", s.handleHistory)
		r.Get("/api/v1/history/{id}", s.handleHistoryDetail)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) observe(r *http.Request, status int) {
	route := "unmatched"
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		route = rctx.RoutePattern()
	}
	s.metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Error:    err.Error(),
			Counters: logger.Snapshot(),
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Counters: logger.Snapshot(),
	})
}

func (s *Server) handleCreatePrediction(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.OwnerFromContext(r.Context())

	var req CreatePredictionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rec, err := s.service.Create(r.Context(), owner, req.raw())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.OwnerFromContext(r.Context())

	list, err := s.service.ListByOwner(r.Context(), owner)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []predictions.Summary{}
	}

	respondJSON(w, http.StatusOK, HistoryResponse{Predictions: list})
}

func (s *Server) handleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.OwnerFromContext(r.Context())

	detail, err := s.service.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) respondUnauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="aquasens"`)
	respondError(w, http.StatusUnauthorized, "unauthorized", err)
}

// respondServiceError maps service errors onto HTTP statuses. Storage and
// unexpected errors are logged and answered with a generic body.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *features.ValidationError
	switch {
	case errors.As(err, &invalid):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid input", Fields: invalid.Fields})
	case errors.Is(err, predictions.ErrOwnerRequired):
		s.respondUnauthorized(w, r, err)
	case errors.Is(err, predictions.ErrNotFound):
		respondError(w, http.StatusNotFound, "prediction not found", nil)
	case errors.Is(err, scoring.ErrUnavailable):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     "scoring service unavailable",
			Retryable: true,
		})
	case errors.Is(err, scoring.ErrRejected), errors.Is(err, scoring.ErrMalformed):
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:     "scoring service error",
			Retryable: true,
		})
	default:
		logger.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

func run(ctx context.Context, cfg *config.ServerConfig) error {
	metrics := observability.NewMetrics()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	}()

	client := scoring.NewClient(scoring.Config{
		BaseURL:         cfg.ScorerURL,
		Timeout:         cfg.ScorerTimeout,
		BreakerFailures: cfg.ScorerBreakerFailures,
		BreakerOpenFor:  cfg.ScorerBreakerOpenFor,
	}, metrics, logger.Logger)
	scorer := scoring.WithRetry(client, cfg.ScorerMaxRetries, scorerRetryDelay, logger.Logger)

	service := predictions.NewService(scorer, store, nil, metrics, logger.Logger)
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, nil)

	httpServer := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.Port),
		Handler: NewServer(service, verifier, metrics, Options{
			RequestTimeout: cfg.RequestTimeout,
			SlowRequest:    cfg.SlowRequest,
			MetricsHandler: promhttp.Handler(),
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "store", cfg.StoreDriver, "scorer", cfg.ScorerURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	logger.Info("Server stopped")
	return nil
}

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Configure(cfg.LoggerOptions(cfg.ServiceName)); err != nil {
		logger.Warn("Logger configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("Server exited", "error", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := logger.Shutdown(flushCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Log flush failed: %v\n", err)
	}
}
