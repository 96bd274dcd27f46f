package metrics

import (
	"sync/atomic"

	"github.com/voxsentry/voxsentry/internal/core"
	"github.com/voxsentry/voxsentry/internal/observability"
)

// Metric names following Prometheus conventions
var (
	RequestsTotal    = "app_requests_total"
	RetriesTotal     = "app_retries_total"
	BreakerOpenTotal = "app_breaker_open_total"
	RateLimitedTotal = "app_rate_limited_total"
	RequestLatency   = "app_request_latency_ms"
)

// Collector aggregates resilience counters for one process. It implements
// the engine Metrics contract and is safe for concurrent use by workers.
// Counts are also forwarded to the telemetry system when one is running.
type Collector struct {
	processed    atomic.Int64
	succeeded    atomic.Int64
	failed       atomic.Int64
	retries      atomic.Int64
	breakerTrips atomic.Int64
	rateLimited  atomic.Int64
	cancelled    atomic.Int64

	latencyMsTotal atomic.Int64
	latencySamples atomic.Int64
}

// Snapshot is a point-in-time copy of the collector counters.
type Snapshot struct {
	FilesProcessed int64   `json:"filesProcessed"`
	FilesSucceeded int64   `json:"filesSucceeded"`
	FilesFailed    int64   `json:"filesFailed"`
	RetryCount     int64   `json:"retryCount"`
	BreakerTrips   int64   `json:"breakerTrips"`
	RateLimited    int64   `json:"rateLimited"`
	Cancelled      int64   `json:"cancelled"`
	AvgLatencyMs   float64 `json:"avgLatencyMs"`
}

// RecordOutcome folds one terminal request outcome into the counters.
func (c *Collector) RecordOutcome(outcome *core.RequestOutcome) {
	if c == nil || outcome == nil {
		return
	}

	c.processed.Add(1)

	switch outcome.TerminalReason {
	case core.ReasonSuccess:
		c.succeeded.Add(1)
	case core.ReasonBreakerOpen:
		c.breakerTrips.Add(1)
	case core.ReasonRateLimited:
		c.rateLimited.Add(1)
	case core.ReasonCancelled:
		c.cancelled.Add(1)
	default:
		c.failed.Add(1)
	}

	if outcome.AttemptsUsed > 0 {
		c.latencyMsTotal.Add(outcome.TotalLatency.Milliseconds())
		c.latencySamples.Add(1)
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(RequestsTotal, 1, map[string]string{
			"reason": string(outcome.TerminalReason),
		})
		if outcome.AttemptsUsed > 0 {
			_ = observability.TelemetrySystem.Histogram(RequestLatency, outcome.TotalLatency, nil)
		}
		switch outcome.TerminalReason {
		case core.ReasonBreakerOpen:
			_ = observability.TelemetrySystem.Counter(BreakerOpenTotal, 1, nil)
		case core.ReasonRateLimited:
			_ = observability.TelemetrySystem.Counter(RateLimitedTotal, 1, nil)
		}
	}
}

// RecordRetry counts one scheduled retry attempt.
func (c *Collector) RecordRetry() {
	if c == nil {
		return
	}

	c.retries.Add(1)

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(RetriesTotal, 1, nil)
	}
}

// Snapshot returns a consistent-enough copy for reporting. Individual
// counters are read atomically; the snapshot as a whole is not a transaction.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}

	snap := Snapshot{
		FilesProcessed: c.processed.Load(),
		FilesSucceeded: c.succeeded.Load(),
		FilesFailed:    c.failed.Load(),
		RetryCount:     c.retries.Load(),
		BreakerTrips:   c.breakerTrips.Load(),
		RateLimited:    c.rateLimited.Load(),
		Cancelled:      c.cancelled.Load(),
	}

	if samples := c.latencySamples.Load(); samples > 0 {
		snap.AvgLatencyMs = float64(c.latencyMsTotal.Load()) / float64(samples)
	}
	return snap
}
