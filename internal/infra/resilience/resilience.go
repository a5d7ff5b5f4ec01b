// Package resilience guards calls to the store and other backing services:
// retry with capped exponential backoff, a circuit breaker that only counts
// the failures it is told to count, and a bulkhead for CPU-bound work.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RetryConfig controls RetryWithBackoff. A nil Retryable retries every error.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Retryable      func(err error) bool
}

// RetryWithBackoff calls fn until it succeeds, returns an error Retryable
// rejects, or MaxRetries retries are spent. Waits double from InitialBackoff
// with up to 50% jitter and never exceed MaxBackoff when it is set.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(lastErr) {
			return lastErr
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.wait(attempt)):
			}
		}
	}
	return lastErr
}

func (cfg RetryConfig) wait(attempt int) time.Duration {
	wait := cfg.InitialBackoff << attempt
	if cfg.MaxBackoff > 0 && (wait > cfg.MaxBackoff || wait <= 0) {
		wait = cfg.MaxBackoff
	}
	if half := int64(wait / 2); half > 0 {
		wait += time.Duration(rand.Int63n(half))
	}
	return wait
}

// NewCircuitBreaker trips after at least 5 requests in a 30s window with 60%
// counted failures, and probes again after 10s. isSuccessful decides which
// errors count; nil counts all. Transitions are logged when logger is set.
func NewCircuitBreaker(name string, isSuccessful func(err error) bool, logger *zap.Logger) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: isSuccessful,
	}
	if logger != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// IsBreakerRejection reports whether err came from an open or saturated
// half-open breaker rather than from the guarded call.
func IsBreakerRejection(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}

// Bulkhead caps how many callers run a section at once.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with at least one slot.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot frees up or ctx ends.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}

// Do runs fn while holding a slot.
func (b *Bulkhead) Do(ctx context.Context, fn func() error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return fn()
}
