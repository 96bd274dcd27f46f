//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voxsentry/voxsentry/internal/config"
	"github.com/voxsentry/voxsentry/internal/core"
)

func openMemoryStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestOpenMemoryStore(t *testing.T) {
	s := openMemoryStore(t)
	require.Equal(t, "libsql", s.Driver())
}

func TestSaveAndListRuns(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	summary := &core.BatchSummary{
		Total:        3,
		Succeeded:    2,
		Failed:       1,
		Retried:      4,
		AvgLatencyMs: 120.5,
		StartedAt:    started,
		CompletedAt:  started.Add(30 * time.Second),
		Outcomes: []*core.RequestOutcome{
			{
				Item:           "call-1",
				Succeeded:      true,
				AttemptsUsed:   1,
				TotalLatency:   90 * time.Millisecond,
				TerminalReason: core.ReasonSuccess,
				Response:       &core.Response{Score: 0.91, RiskBand: core.RiskBandHigh},
			},
			{
				Item:           "call-2",
				AttemptsUsed:   3,
				TotalLatency:   400 * time.Millisecond,
				TerminalReason: core.ReasonMaxRetriesExceeded,
				Message:        "api error 503: unavailable",
			},
		},
	}

	runID, err := s.SaveRun(ctx, "score", summary)
	require.NoError(t, err)
	require.Greater(t, runID, int64(0))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, runID, runs[0].ID)
	require.Equal(t, "score", runs[0].Kind)
	require.Equal(t, 3, runs[0].Total)
	require.Equal(t, 2, runs[0].Succeeded)
	require.Equal(t, 4, runs[0].Retried)
	require.InDelta(t, 120.5, runs[0].AvgLatencyMs, 1e-9)
	require.Equal(t, started, runs[0].StartedAt)

	var outcomeCount int
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM run_outcomes WHERE run_id = ?`, runID).Scan(&outcomeCount))
	require.Equal(t, 2, outcomeCount)
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.SaveRun(ctx, "score", &core.BatchSummary{
			Total:       1,
			Succeeded:   1,
			StartedAt:   base.Add(time.Duration(i) * time.Hour),
			CompletedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
		})
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}

func TestSaveAndListSARs(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	_, err := s.SaveSAR(ctx, SARRecord{})
	require.Error(t, err)

	id, err := s.SaveSAR(ctx, SARRecord{
		CallID:      "call-7",
		CaseID:      "case-1001",
		RequestID:   "req-42",
		SubmittedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	_, err = s.SaveSAR(ctx, SARRecord{CallID: "call-8"})
	require.NoError(t, err)

	all, err := s.ListSARs(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)

	forCall, err := s.ListSARs(ctx, "call-7", 10)
	require.NoError(t, err)
	require.Len(t, forCall, 1)
	require.Equal(t, "case-1001", forCall[0].CaseID)
	require.Equal(t, "req-42", forCall[0].RequestID)
}
