package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/liamcoop/aquasens/features"
)

// Retrying wraps a Scorer and retries calls that failed with ErrUnavailable.
// Rejected and malformed responses are returned immediately.
type Retrying struct {
	inner           Scorer
	maxRetries      uint64
	initialInterval time.Duration
	logger          *slog.Logger
}

// WithRetry decorates inner with up to maxRetries additional attempts using
// exponential backoff. With maxRetries of zero inner is returned unchanged.
func WithRetry(inner Scorer, maxRetries int, initialInterval time.Duration, logger *slog.Logger) Scorer {
	if maxRetries <= 0 {
		return inner
	}
	return &Retrying{
		inner:           inner,
		maxRetries:      uint64(maxRetries),
		initialInterval: initialInterval,
		logger:          logger,
	}
}

// Score implements Scorer.
func (r *Retrying) Score(ctx context.Context, fs features.FeatureSet) (Result, error) {
	bo := backoff.NewExponentialBackOff()
	if r.initialInterval > 0 {
		bo.InitialInterval = r.initialInterval
	}

	attempt := 0
	res, err := backoff.RetryWithData(func() (Result, error) {
		attempt++
		res, err := r.inner.Score(ctx, fs)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
			return Result{}, backoff.Permanent(err)
		}
		r.logger.Warn("scoring attempt failed", "attempt", attempt, "error", err)
		return Result{}, err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, r.maxRetries), ctx))

	// Cancellation while waiting between attempts surfaces as the bare
	// context error.
	if err != nil && !errors.Is(err, ErrUnavailable) && errors.Is(err, ctx.Err()) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return res, err
}
