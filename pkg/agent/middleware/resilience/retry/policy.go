// Package retry provides bounded retry for LLM calls and the checks wrapped around them.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"grindhub/pkg/agent/llmerrors"
)

// DefaultMaxAttempts is the total attempt budget, initial call included.
const DefaultMaxAttempts = 3

// Config defines configuration for retry behavior.
type Config struct {
	MaxAttempts   int           `json:"max_attempts"`   // Maximum number of attempts (including initial)
	InitialDelay  time.Duration `json:"initial_delay"`  // Delay before the first retry; zero retries immediately
	MaxDelay      time.Duration `json:"max_delay"`      // Maximum delay between retries
	BackoffFactor float64       `json:"backoff_factor"` // Multiplier for exponential backoff
	Jitter        bool          `json:"jitter"`         // Add random jitter to prevent thundering herd
}

// DefaultConfig retries immediately, three attempts in total.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultConfig = Config{
	MaxAttempts:   DefaultMaxAttempts,
	InitialDelay:  0,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        false,
}

// Classifier determines if an error should be retried.
type Classifier func(error) bool

// ShouldRetry is the default classifier: any failure earns another attempt
// unless the caller cancelled or the error is already an exhaustion.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !llmerrors.IsExhausted(err)
}

// Policy encapsulates retry configuration and logic.
//
//nolint:govet // Simple struct, logical grouping preferred
type Policy struct {
	Config     Config
	Classifier Classifier
	// OnRetry, when set, is called before each retry with the attempt about to run.
	OnRetry func(attempt int, err error)
}

// NewPolicy creates a new retry policy with the given configuration and classifier.
func NewPolicy(config Config, classifier Classifier) *Policy {
	if classifier == nil {
		classifier = ShouldRetry
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	return &Policy{
		Config:     config,
		Classifier: classifier,
	}
}

// WithMaxAttempts returns a copy of the policy with a different attempt budget.
func (p *Policy) WithMaxAttempts(n int) *Policy {
	cp := *p
	if n > 0 {
		cp.Config.MaxAttempts = n
	}
	return &cp
}

// CalculateDelay computes the delay for the given attempt number.
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 1 || p.Config.InitialDelay <= 0 {
		return 0
	}

	factor := p.Config.BackoffFactor
	if factor <= 0 {
		factor = 1
	}
	delay := time.Duration(float64(p.Config.InitialDelay) * math.Pow(factor, float64(attempt-2)))

	if p.Config.MaxDelay > 0 && delay > p.Config.MaxDelay {
		delay = p.Config.MaxDelay
	}

	if p.Config.Jitter && delay > 0 {
		jitter := time.Duration(float64(delay) * 0.1 * (2*rand.Float64() - 1))
		delay += jitter
		if delay < 0 {
			delay = p.Config.InitialDelay
		}
	}

	return delay
}

// ShouldRetry determines if an error should be retried based on the configured classifier.
func (p *Policy) ShouldRetry(err error) bool {
	return p.Classifier(err)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt budget is spent.
// Each attempt is a full independent call. Exhaustion yields an llmerrors exhausted error
// wrapping the last failure.
func Do[T any](ctx context.Context, p *Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := p.Config.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if p.OnRetry != nil {
				p.OnRetry(attempt, lastErr)
			}
			if delay := p.CalculateDelay(attempt); delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return zero, ctx.Err()
				case <-timer.C:
				}
			}
		}

		if err := ctx.Err(); err != nil && errors.Is(err, context.Canceled) {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !p.ShouldRetry(err) {
			return zero, err
		}
	}

	return zero, llmerrors.NewExhaustedError(lastErr, attempts)
}
