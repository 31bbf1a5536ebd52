// Command scorer serves the irrigation decision tree over HTTP using the
// same contract as the production model service.
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

	"github.com/liamcoop/aquasens/features"
	"github.com/liamcoop/aquasens/internal/config"
	"github.com/liamcoop/aquasens/internal/logger"
	"github.com/liamcoop/aquasens/rules"
)

const maxBodyBytes = 1 << 20

type Server struct {
	engine *rules.Engine
	router *chi.Mux
}

func NewServer(engine *rules.Engine) *Server {
	s := &Server{engine: engine}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(0, nil))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/predict", s.handlePredict)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var payload features.Wire
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	fs, complete := features.FromWire(payload).FeatureSet()
	if !complete {
		respondError(w, http.StatusBadRequest, "all features are required", nil)
		return
	}
	if err := features.ValidateFeatureSet(fs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid features", err)
		return
	}

	result, err := s.engine.Score(r.Context(), fs)
	if err != nil {
		logger.Error("Scoring failed", "error", err)
		respondError(w, http.StatusInternalServerError, "scoring failed", nil)
		return
	}

	logger.Debug("Scored sample", "prediction", result.Level, "steps", len(result.DecisionPath))
	respondJSON(w, http.StatusOK, result)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func loadEngine(cfg *config.ScorerConfig) (*rules.Engine, error) {
	tree := rules.DefaultTree()
	if cfg.TreeFile != "" {
		loaded, err := rules.LoadTree(cfg.TreeFile)
		if err != nil {
			return nil, err
		}
		tree = loaded
	}
	return rules.NewEngine(tree, cfg.MaxTraceSteps)
}

func main() {
	cfg, err := config.LoadScorer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Configure(cfg.LoggerOptions(cfg.ServiceName)); err != nil {
		logger.Warn("Logger configuration", "error", err)
	}

	engine, err := loadEngine(cfg)
	if err != nil {
		logger.Fatal("Failed to load decision tree", "error", err)
	}

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      NewServer(engine),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Scorer starting", "port", cfg.Port, "tree_file", cfg.TreeFile)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Scorer failed to start", "error", err)
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down scorer...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Scorer shutdown error", "error", err)
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Log flush failed: %v\n", err)
	}

	logger.Info("Scorer stopped")
}
