package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/voxsentry/voxsentry/internal/core"
)

// ErrorClass classifies a failed attempt for the retry decision.
type ErrorClass int

const (
	// ClassRetryable covers server errors, timeouts and transient network
	// failures. These are retried up to the attempt bound.
	ClassRetryable ErrorClass = iota

	// ClassFatal covers client errors (4xx other than 429). Never retried.
	ClassFatal

	// ClassCancelled means external cancellation was observed mid-flight.
	ClassCancelled
)

// Classify maps a transport error onto an error class.
func Classify(err error) ErrorClass {
	if errors.Is(err, context.Canceled) {
		return ClassCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassRetryable
	}
	if errors.Is(err, core.ErrInvalidRequest) {
		return ClassFatal
	}

	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return ClassRetryable
		case apiErr.StatusCode >= 500:
			return ClassRetryable
		case apiErr.StatusCode >= 400:
			return ClassFatal
		default:
			return ClassRetryable
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassRetryable
	}

	// Remaining failures are connection-level (reset, refused, DNS) and
	// treated as transient.
	return ClassRetryable
}

// RetryPolicy decides whether a failed attempt is retried and how long to
// back off before the next one.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	// Rand overrides the jitter source for tests. Must return [0, 1).
	Rand func() float64
}

// NewRetryPolicy validates the retry configuration.
func NewRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) (*RetryPolicy, error) {
	if maxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", maxAttempts)
	}
	if baseDelay <= 0 {
		return nil, fmt.Errorf("base delay must be positive, got %v", baseDelay)
	}
	if maxDelay < baseDelay {
		return nil, fmt.Errorf("max delay %v must not be below base delay %v", maxDelay, baseDelay)
	}

	return &RetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}, nil
}

// MaxAttempts returns the configured attempt ceiling.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry reports whether another attempt is allowed after the given
// 1-indexed attempt failed with the given class.
func (p *RetryPolicy) ShouldRetry(class ErrorClass, attempt int) bool {
	if class != ClassRetryable {
		return false
	}
	return attempt < p.maxAttempts
}

// BackoffDelay computes the capped exponential delay with full jitter for the
// given 1-indexed attempt.
func (p *RetryPolicy) BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}

	// Full jitter: uniform over [0, delay).
	return time.Duration(p.rand() * delay)
}

func (p *RetryPolicy) rand() float64 {
	if p != nil && p.Rand != nil {
		return p.Rand()
	}
	return rand.Float64()
}
