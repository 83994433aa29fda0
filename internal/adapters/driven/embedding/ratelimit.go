// Package embedding holds what the embedding provider adapters share: the
// rate-limited decorator and the error a provider returns when it pushes back.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/refindex/internal/core/ports/driven"
	"github.com/custodia-labs/refindex/internal/logger"
)

// Ensure RateLimited implements the interface.
var _ driven.EmbeddingService = (*RateLimited)(nil)

// DefaultBackoff applies when a provider rejects a request without a Retry-After hint.
const DefaultBackoff = 10 * time.Second

// DefaultMaxRetries is how often a throttled request is retried.
const DefaultMaxRetries = 2

// RateLimitError reports that the provider throttled a request.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return e.Provider + ": rate limited"
}

// RateLimitFromResponse returns a RateLimitError for a 429 response and nil otherwise.
// Retry-After is honoured in its delay-seconds form.
func RateLimitFromResponse(provider string, resp *http.Response) error {
	if resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	err := &RateLimitError{Provider: provider}
	if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
		err.RetryAfter = time.Duration(secs) * time.Second
	}
	return err
}

// RateLimitConfig holds rate limiting configuration for an embedding provider.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit. Zero disables limiting.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size (minimum 1).
	BurstSize int
	// MaxRetries bounds retries of throttled requests.
	MaxRetries int
}

// RateLimited wraps an EmbeddingService with a token bucket and backs off
// when the provider answers with a RateLimitError.
type RateLimited struct {
	inner      driven.EmbeddingService
	limiter    *rate.Limiter
	maxRetries int

	mu      sync.Mutex
	retryAt time.Time
}

// NewRateLimited decorates inner with cfg.
func NewRateLimited(inner driven.EmbeddingService, cfg RateLimitConfig) *RateLimited {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.BurstSize
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		inner:      inner,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
	}
}

// Embed waits for a token, then delegates. Throttled requests are retried
// after the provider's backoff up to MaxRetries times.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	for attempt := 0; ; attempt++ {
		if err := r.wait(ctx); err != nil {
			return nil, err
		}

		vec, err := r.inner.Embed(ctx, text)
		var limited *RateLimitError
		if !errors.As(err, &limited) {
			return vec, err
		}

		r.recordRateLimit(limited.RetryAfter)
		if attempt >= r.maxRetries {
			return nil, err
		}
		logger.Debug("embedding throttled by %s, retry %d/%d", limited.Provider, attempt+1, r.maxRetries)
	}
}

// Dimensions returns the inner service's vector size.
func (r *RateLimited) Dimensions() int { return r.inner.Dimensions() }

// ModelName returns the inner service's model.
func (r *RateLimited) ModelName() string { return r.inner.ModelName() }

// Ping checks the inner service without consuming a token.
func (r *RateLimited) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }

// Close closes the inner service.
func (r *RateLimited) Close() error { return r.inner.Close() }

// wait blocks for any backoff window and then for the token bucket.
func (r *RateLimited) wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

func (r *RateLimited) recordRateLimit(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = DefaultBackoff
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(retryAfter)
}
