package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS batch_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		total INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		retried INTEGER NOT NULL,
		breaker_trips INTEGER NOT NULL,
		rate_limited INTEGER NOT NULL,
		cancelled INTEGER NOT NULL,
		avg_latency_ms REAL NOT NULL,
		started_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_batch_runs_started ON batch_runs(started_at);`,
	`CREATE TABLE IF NOT EXISTS run_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES batch_runs(id),
		item TEXT NOT NULL,
		terminal_reason TEXT NOT NULL,
		attempts_used INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		score REAL,
		risk_band TEXT,
		message TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_run_outcomes_run ON run_outcomes(run_id);`,
	`CREATE TABLE IF NOT EXISTS sar_submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		call_id TEXT NOT NULL,
		case_id TEXT,
		request_id TEXT,
		submitted_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_sar_submissions_call ON sar_submissions(call_id);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
