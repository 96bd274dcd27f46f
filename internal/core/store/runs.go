package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voxsentry/voxsentry/internal/core"
)

// RunRecord is one persisted batch run.
type RunRecord struct {
	ID           int64     `json:"id"`
	Kind         string    `json:"kind"`
	Total        int       `json:"total"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Retried      int       `json:"retried"`
	BreakerTrips int       `json:"breaker_trips"`
	RateLimited  int       `json:"rate_limited"`
	Cancelled    int       `json:"cancelled"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// SaveRun persists a batch summary and its per-item outcomes in one
// transaction, returning the run id.
func (s *Store) SaveRun(ctx context.Context, kind string, summary *core.BatchSummary) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if summary == nil {
		return 0, errors.New("summary is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin run save: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx,
		`INSERT INTO batch_runs (kind, total, succeeded, failed, retried, breaker_trips, rate_limited, cancelled, avg_latency_ms, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		kind, summary.Total, summary.Succeeded, summary.Failed, summary.Retried,
		summary.BreakerTrips, summary.RateLimited, summary.Cancelled, summary.AvgLatencyMs,
		summary.StartedAt.Unix(), summary.CompletedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("save run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, outcome := range summary.Outcomes {
		if outcome == nil {
			continue
		}

		var score any
		var band any
		if outcome.Response != nil {
			score = outcome.Response.Score
			band = string(outcome.Response.RiskBand)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_outcomes (run_id, item, terminal_reason, attempts_used, latency_ms, score, risk_band, message)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, outcome.Item, string(outcome.TerminalReason), outcome.AttemptsUsed,
			outcome.TotalLatency.Milliseconds(), score, band, outcome.Message,
		); err != nil {
			return 0, fmt.Errorf("save outcome: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run save: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent batch runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit < 1 {
		limit = 20
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, kind, total, succeeded, failed, retried, breaker_trips, rate_limited, cancelled, avg_latency_ms, started_at, completed_at
		 FROM batch_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var startedAt, completedAt int64
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Total, &rec.Succeeded, &rec.Failed,
			&rec.Retried, &rec.BreakerTrips, &rec.RateLimited, &rec.Cancelled,
			&rec.AvgLatencyMs, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt = time.Unix(startedAt, 0).UTC()
		rec.CompletedAt = time.Unix(completedAt, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return records, nil
}
