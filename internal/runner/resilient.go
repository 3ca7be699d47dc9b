package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ErrRateLimited is returned when runs arrive faster than the configured rate
var ErrRateLimited = errors.New("run rate limit exceeded")

// ResilientRunner wraps a Runner with resilience patterns from fortify.
// Only infrastructure errors count as failures; a program that exits
// non-zero is a normal Result.
type ResilientRunner struct {
	runner         Runner
	circuitBreaker circuitbreaker.CircuitBreaker[*Result]
	retrier        retry.Retry[*Result]
	bulkhead       bulkhead.Bulkhead[*Result]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
	name           string
}

// ResilientConfig holds configuration for the resilient runner wrapper
type ResilientConfig struct {
	EnableCircuitBreaker bool
	EnableRetry          bool
	EnableBulkhead       bool
	EnableRateLimit      bool

	// MaxConcurrent for bulkhead (default: 4)
	MaxConcurrent int

	// RatePerSecond for rate limiting (default: 5)
	RatePerSecond int

	Logger *slog.Logger
}

// DefaultResilientConfig returns defaults for interactive use
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxConcurrent:        4,
		RatePerSecond:        5,
	}
}

// NewResilientRunner wraps runner with the enabled patterns. name keys the
// rate limiter and labels log lines.
func NewResilientRunner(name string, runner Runner, cfg ResilientConfig) *ResilientRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rr := &ResilientRunner{
		runner: runner,
		logger: logger,
		name:   name,
	}

	if cfg.EnableCircuitBreaker {
		rr.circuitBreaker = circuitbreaker.New[*Result](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				rr.logger.Warn("runner circuit breaker state change",
					"runner", name,
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	if cfg.EnableRetry {
		rr.retrier = retry.New[*Result](retry.Config{
			MaxAttempts:   2,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable: func(err error) bool {
				return errors.Is(err, ErrUnavailable)
			},
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 4
		}
		rr.bulkhead = bulkhead.New[*Result](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 2,
			QueueTimeout:  30 * time.Second,
		})
	}

	if cfg.EnableRateLimit {
		rate := cfg.RatePerSecond
		if rate <= 0 {
			rate = 5
		}
		rr.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 2,
			Interval: time.Second,
		})
	}

	return rr
}

// Run executes req through the configured patterns
func (r *ResilientRunner) Run(ctx context.Context, req Request) (*Result, error) {
	if r.rateLimit != nil && !r.rateLimit.Allow(ctx, r.name) {
		return nil, fmt.Errorf("%w for runner %s", ErrRateLimited, r.name)
	}

	operation := func(ctx context.Context) (*Result, error) {
		return r.runner.Run(ctx, req)
	}

	if r.bulkhead != nil {
		operation = func(ctx context.Context) (*Result, error) {
			return r.bulkhead.Execute(ctx, func(ctx context.Context) (*Result, error) {
				return r.runner.Run(ctx, req)
			})
		}
	}

	// Unsupported languages are caller mistakes and must not trip the breaker.
	if !req.Language.IsValid() {
		return operation(ctx)
	}

	if r.circuitBreaker != nil && r.retrier != nil {
		return r.circuitBreaker.Execute(ctx, func(ctx context.Context) (*Result, error) {
			return r.retrier.Do(ctx, operation)
		})
	}
	if r.circuitBreaker != nil {
		return r.circuitBreaker.Execute(ctx, operation)
	}
	if r.retrier != nil {
		return r.retrier.Do(ctx, operation)
	}
	return operation(ctx)
}

// Close releases resources held by the resilient runner
func (r *ResilientRunner) Close() error {
	if r.rateLimit != nil {
		return r.rateLimit.Close()
	}
	return nil
}
