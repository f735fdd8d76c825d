package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/observability"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// Retrying retries retryable fetch failures with a fixed backoff.
type Retrying struct {
	next       Fetcher
	maxRetries int
	delay      time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewRetrying wraps next. maxRetries counts attempts after the first.
func NewRetrying(next Fetcher, maxRetries int, delay time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Retrying {
	return &Retrying{
		next:       next,
		maxRetries: maxRetries,
		delay:      delay,
		metrics:    metrics,
		logger:     logger.With("component", "retry"),
	}
}

// Fetch calls the wrapped fetcher until it succeeds, fails permanently, or
// the retry budget is spent. Non-idempotent requests such as POST are sent
// once.
func (r *Retrying) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if !idempotent(req.Method) {
		return r.next.Fetch(ctx, req)
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			wait := r.delay
			var fe *types.FetchError
			if errors.As(lastErr, &fe) && fe.RetryAfter > wait {
				wait = fe.RetryAfter
			}
			r.logger.Debug("retrying fetch", "url", req.URLString(), "attempt", attempt, "wait", wait, "error", lastErr)
			r.metrics.FetchRetried(req.Domain())

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, &types.FetchError{URL: req.URLString(), Err: ctx.Err()}
			case <-timer.C:
			}
		}

		resp, err := r.next.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var fe *types.FetchError
		if !errors.As(err, &fe) || !fe.Retryable || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, &types.FetchError{
		URL: req.URLString(),
		Err: fmt.Errorf("%w after %d attempts: %w", types.ErrMaxRetries, r.maxRetries+1, lastErr),
	}
}

func idempotent(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Close closes the wrapped fetcher.
func (r *Retrying) Close() error { return r.next.Close() }

// Type reports the wrapped fetcher type.
func (r *Retrying) Type() string { return r.next.Type() }
