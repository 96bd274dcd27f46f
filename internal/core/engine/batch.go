package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/voxsentry/voxsentry/internal/core"
)

// BatchItem is one pending request in a batch run.
type BatchItem struct {
	Name    string
	Request *core.Request
}

// Coordinator fans a batch of requests out over a bounded worker pool, feeding
// each item through the shared Executor and aggregating outcomes.
//
// The coordinator applies no retry policy of its own; all retry decisions live
// in the executor. One failed item never aborts the batch.
type Coordinator struct {
	Executor *Executor
	Workers  int
	Clock    func() time.Time
}

// Run processes all items and returns the aggregated summary. When ctx is
// cancelled, in-flight workers abandon retries and not-yet-started items are
// reported as cancelled.
func (c *Coordinator) Run(ctx context.Context, items []*BatchItem) (*core.BatchSummary, error) {
	if c == nil || c.Executor == nil {
		return nil, errors.New("batch coordinator requires an executor")
	}
	if len(items) == 0 {
		return nil, errors.New("at least one batch item is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	startedAt := c.now()
	outcomes := make([]*core.RequestOutcome, len(items))
	jobs := make(chan int)

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for idx := range jobs {
			item := items[idx]
			if ctx.Err() != nil {
				outcomes[idx] = c.cancelledOutcome(item)
				continue
			}
			outcomes[idx] = c.Executor.Execute(ctx, item.Name, item.Request)
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

sendLoop:
	for i := range items {
		select {
		case <-ctx.Done():
			break sendLoop
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	summary := &core.BatchSummary{
		StartedAt: startedAt,
	}

	var latencySum time.Duration
	var latencyCount int
	for i, outcome := range outcomes {
		if outcome == nil {
			outcome = c.cancelledOutcome(items[i])
			outcomes[i] = outcome
		}
		summary.Record(outcome)
		if outcome.AttemptsUsed > 0 {
			latencySum += outcome.TotalLatency
			latencyCount++
		}
	}
	if latencyCount > 0 {
		summary.AvgLatencyMs = float64(latencySum.Milliseconds()) / float64(latencyCount)
	}

	summary.CompletedAt = c.now()
	summary.Outcomes = outcomes
	return summary, nil
}

func (c *Coordinator) cancelledOutcome(item *BatchItem) *core.RequestOutcome {
	name := ""
	if item != nil {
		name = item.Name
	}
	outcome := &core.RequestOutcome{
		Item:           name,
		TerminalReason: core.ReasonCancelled,
		Message:        context.Canceled.Error(),
	}
	if c.Executor != nil && c.Executor.Metrics != nil {
		c.Executor.Metrics.RecordOutcome(outcome)
	}
	return outcome
}

func (c *Coordinator) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
