package engine

import (
	"context"
	"errors"
	"time"

	"github.com/voxsentry/voxsentry/internal/core"
)

// Transport sends one request to the fraud API. Implementations classify
// failures by returning *core.APIError for status-tagged responses.
type Transport interface {
	Send(ctx context.Context, req *core.Request) (*core.Response, error)
}

// Metrics receives executor events. Implementations must be safe for
// concurrent use. A nil Metrics is ignored.
type Metrics interface {
	RecordOutcome(outcome *core.RequestOutcome)
	RecordRetry()
}

// Executor runs one logical request through the rate limiter, circuit breaker
// and retry policy, producing a uniform outcome.
//
// Limiter and Breaker are shared across workers; the executor re-checks both
// on every retry since their state may have changed while backing off.
type Executor struct {
	Transport Transport
	Limiter   *TokenBucket
	Breaker   *Breaker
	Policy    *RetryPolicy

	// Timeout bounds each transport attempt. Zero means no attempt timeout.
	Timeout time.Duration

	// WaitForSlot blocks on the limiter instead of rejecting when no token
	// is available.
	WaitForSlot bool

	Metrics Metrics

	// Clock and Sleep override time for tests.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Execute drives req to a terminal outcome. It never panics for call-level
// failures; every terminal reason is reported through the outcome.
func (e *Executor) Execute(ctx context.Context, item string, req *core.Request) *core.RequestOutcome {
	if ctx == nil {
		ctx = context.Background()
	}

	started := e.now()
	attempt := 0

	for {
		if ctx.Err() != nil {
			return e.finish(item, started, attempt, core.ReasonCancelled, ctx.Err(), nil)
		}

		// Admission first: a denied request involves neither the breaker
		// nor the transport.
		if e.Limiter != nil {
			if e.WaitForSlot {
				if err := e.Limiter.Acquire(ctx); err != nil {
					return e.finish(item, started, attempt, core.ReasonCancelled, err, nil)
				}
			} else if !e.Limiter.TryAcquire() {
				return e.finish(item, started, attempt, core.ReasonRateLimited, nil, nil)
			}
		}

		if e.Breaker != nil && !e.Breaker.Allow() {
			return e.finish(item, started, attempt, core.ReasonBreakerOpen, nil, nil)
		}

		attempt++
		resp, err := e.send(ctx, req)
		if err == nil {
			if e.Breaker != nil {
				e.Breaker.RecordSuccess()
			}
			return e.finish(item, started, attempt, core.ReasonSuccess, nil, resp)
		}

		if e.Breaker != nil {
			e.Breaker.RecordFailure()
		}

		switch class := Classify(err); {
		case class == ClassCancelled:
			return e.finish(item, started, attempt, core.ReasonCancelled, err, nil)
		case class == ClassFatal:
			return e.finish(item, started, attempt, core.ReasonFatalClientError, err, nil)
		case !e.Policy.ShouldRetry(class, attempt):
			return e.finish(item, started, attempt, core.ReasonMaxRetriesExceeded, err, nil)
		}

		if e.Metrics != nil {
			e.Metrics.RecordRetry()
		}

		if err := e.sleep(ctx, e.Policy.BackoffDelay(attempt)); err != nil {
			return e.finish(item, started, attempt, core.ReasonCancelled, err, nil)
		}
	}
}

func (e *Executor) send(ctx context.Context, req *core.Request) (*core.Response, error) {
	if e.Transport == nil {
		return nil, errors.New("transport is not configured")
	}

	if e.Timeout > 0 {
		attemptCtx, cancel := context.WithTimeout(ctx, e.Timeout)
		defer cancel()
		return e.Transport.Send(attemptCtx, req)
	}

	return e.Transport.Send(ctx, req)
}

func (e *Executor) finish(item string, started time.Time, attempts int, reason core.TerminalReason, err error, resp *core.Response) *core.RequestOutcome {
	outcome := &core.RequestOutcome{
		Item:           item,
		Succeeded:      reason == core.ReasonSuccess,
		AttemptsUsed:   attempts,
		TotalLatency:   e.now().Sub(started),
		TerminalReason: reason,
		Response:       resp,
	}
	if err != nil {
		outcome.Message = err.Error()
	}

	if e.Metrics != nil {
		e.Metrics.RecordOutcome(outcome)
	}
	return outcome
}

func (e *Executor) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e != nil && e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}
