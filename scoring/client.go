package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/liamcoop/aquasens/features"
	"github.com/liamcoop/aquasens/internal/observability"
)

const (
	predictPath     = "/predict"
	maxResponseSize = 1 << 20
	maxErrorBody    = 512
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// BreakerFailures is the number of consecutive unavailable responses
	// that opens the breaker. Zero disables tripping.
	BreakerFailures uint32
	// BreakerOpenFor is how long the breaker stays open before probing.
	BreakerOpenFor time.Duration
}

// Client implements Scorer over HTTP. Each Score call makes at most one
// request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a scoring client. A nil logger uses slog.Default() and
// nil metrics are recorded into unregistered collectors.
func NewClient(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "scoring",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.BreakerFailures > 0 && counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful:  isSuccessful,
		OnStateChange: c.onStateChange,
	})
	return c
}

// isSuccessful decides what the breaker counts as a failure. Rejections and
// malformed bodies mean the scorer is up, and a caller abandoning its own
// request says nothing about the scorer's health.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	return !errors.Is(err, ErrUnavailable)
}

func (c *Client) onStateChange(name string, from, to gobreaker.State) {
	c.logger.Warn("circuit breaker state changed",
		"breaker", name,
		"from", from.String(),
		"to", to.String(),
	)
	if to == gobreaker.StateOpen {
		c.metrics.ScoringBreakerOpen.Set(1)
	} else {
		c.metrics.ScoringBreakerOpen.Set(0)
	}
}

// Score sends fs to the scorer in wire form. Errors wrap ErrUnavailable,
// ErrRejected or ErrMalformed.
func (c *Client) Score(ctx context.Context, fs features.FeatureSet) (Result, error) {
	start := time.Now()

	out, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, fs)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	c.metrics.ScoringDuration.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return Result{}, err
	}
	return out.(Result), nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unavailable"
	}
}

func (c *Client) doRequest(ctx context.Context, fs features.FeatureSet) (Result, error) {
	body, err := json.Marshal(features.ToWire(fs))
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: predict request: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}
	if len(data) > maxResponseSize {
		return Result{}, fmt.Errorf("%w: response exceeds %d bytes", ErrMalformed, maxResponseSize)
	}

	return decodeResult(data)
}

// Scorer response shape. Pointers distinguish absent fields from zero values.

type response struct {
	Prediction     *string                 `json:"prediction"`
	DecisionPath   *[]*responseTraceEntry  `json:"decision_path"`
	Recommendation *responseRecommendation `json:"recommendation"`
}

type responseTraceEntry struct {
	Feature   *string  `json:"feature"`
	Value     *float64 `json:"value"`
	Condition *string  `json:"condition"`
}

type responseRecommendation struct {
	Action *string    `json:"action"`
	Advice *[]*string `json:"advice"`
}

func decodeResult(data []byte) (Result, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %w", ErrMalformed, err)
	}

	switch {
	case resp.Prediction == nil:
		return Result{}, fmt.Errorf("%w: missing prediction", ErrMalformed)
	case resp.DecisionPath == nil:
		return Result{}, fmt.Errorf("%w: missing decision_path", ErrMalformed)
	case resp.Recommendation == nil:
		return Result{}, fmt.Errorf("%w: missing recommendation", ErrMalformed)
	case resp.Recommendation.Action == nil:
		return Result{}, fmt.Errorf("%w: missing recommendation.action", ErrMalformed)
	case resp.Recommendation.Advice == nil:
		return Result{}, fmt.Errorf("%w: missing recommendation.advice", ErrMalformed)
	}

	level := Level(*resp.Prediction)
	if !level.Valid() {
		return Result{}, fmt.Errorf("%w: unknown prediction %q", ErrMalformed, *resp.Prediction)
	}

	path := make([]TraceEntry, 0, len(*resp.DecisionPath))
	for i, e := range *resp.DecisionPath {
		if e == nil || e.Feature == nil || e.Value == nil || e.Condition == nil {
			return Result{}, fmt.Errorf("%w: decision_path[%d] incomplete", ErrMalformed, i)
		}
		path = append(path, TraceEntry{Feature: *e.Feature, Value: *e.Value, Condition: *e.Condition})
	}

	advice := make([]string, 0, len(*resp.Recommendation.Advice))
	for i, a := range *resp.Recommendation.Advice {
		if a == nil {
			return Result{}, fmt.Errorf("%w: recommendation.advice[%d] is null", ErrMalformed, i)
		}
		advice = append(advice, *a)
	}

	return Result{
		Level:        level,
		DecisionPath: path,
		Recommendation: Recommendation{
			Action: *resp.Recommendation.Action,
			Advice: advice,
		},
	}, nil
}
