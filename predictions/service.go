package predictions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/liamcoop/aquasens/features"
	"github.com/liamcoop/aquasens/internal/observability"
	"github.com/liamcoop/aquasens/scoring"
)

// Service runs the prediction pipeline: validate, score, persist, and read
// back. It holds no per-request state.
type Service struct {
	scorer  scoring.Scorer
	store   Store
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService wires a Service. A nil clock means the real clock, nil metrics
// are recorded into unregistered collectors and a nil logger uses
// slog.Default().
func NewService(scorer scoring.Scorer, store Store, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		scorer:  scorer,
		store:   store,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Create validates raw, scores it and stores exactly one new record.
//
// Validation failures wrap ErrInvalidInput and a *features.ValidationError;
// nothing downstream is contacted. Scoring failures are returned wrapping
// the scoring sentinels and nothing is stored. A store failure after a
// successful score wraps ErrStorage and the score is lost.
func (s *Service) Create(ctx context.Context, ownerID string, raw map[string]any) (*Record, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrOwnerRequired
	}

	fs, err := features.Validate(raw)
	if err != nil {
		s.fail(observability.ReasonInvalidInput)
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	res, err := s.scorer.Score(ctx, fs)
	if err != nil {
		s.fail(scoringReason(err))
		s.logger.Warn("scoring failed", "owner", ownerID, "error", err)
		return nil, fmt.Errorf("score prediction: %w", err)
	}

	rec := &Record{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Input:          features.ToWire(fs),
		Result:         res.Level,
		DecisionPath:   res.DecisionPath,
		Recommendation: res.Recommendation,
		CreatedAt:      s.clock.Now().UTC().Truncate(time.Millisecond),
	}
	if rec.DecisionPath == nil {
		rec.DecisionPath = []scoring.TraceEntry{}
	}
	if rec.Recommendation.Advice == nil {
		rec.Recommendation.Advice = []string{}
	}

	// The write runs to completion even if the caller goes away.
	if err := s.store.Create(context.WithoutCancel(ctx), rec); err != nil {
		s.fail(observability.ReasonStorage)
		s.logger.Error("failed to persist prediction, scoring result lost",
			"owner", ownerID,
			"prediction_id", rec.ID,
			"result", rec.Result,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.metrics.PredictionsCreated.Inc()
	s.logger.Info("prediction created",
		"owner", ownerID,
		"prediction_id", rec.ID,
		"result", rec.Result,
		"trace_steps", len(rec.DecisionPath),
	)
	return rec, nil
}

// ListByOwner returns the owner's history, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Summary, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrOwnerRequired
	}
	list, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return list, nil
}

// Get returns the display detail of one record. Records that do not exist
// or belong to another owner are both ErrNotFound.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Detail, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrOwnerRequired
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if rec.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return NewDetail(rec), nil
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) fail(reason string) {
	s.metrics.PredictionFailures.WithLabelValues(reason).Inc()
}

func scoringReason(err error) string {
	switch {
	case errors.Is(err, scoring.ErrRejected):
		return observability.ReasonScoringRejected
	case errors.Is(err, scoring.ErrMalformed):
		return observability.ReasonScoringMalformed
	default:
		return observability.ReasonScoringUnavailable
	}
}
