package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SARRecord is one persisted suspicious-activity report submission.
type SARRecord struct {
	ID          int64     `json:"id"`
	CallID      string    `json:"call_id"`
	CaseID      string    `json:"case_id,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SaveSAR appends a submission to the report ledger.
func (s *Store) SaveSAR(ctx context.Context, rec SARRecord) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if rec.CallID == "" {
		return 0, errors.New("call id is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	submittedAt := rec.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}

	result, err := s.DB.ExecContext(ctx,
		`INSERT INTO sar_submissions (call_id, case_id, request_id, submitted_at) VALUES (?, ?, ?, ?)`,
		rec.CallID, rec.CaseID, rec.RequestID, submittedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("save sar submission: %w", err)
	}
	return result.LastInsertId()
}

// ListSARs returns submissions for a call, or the most recent submissions
// across all calls when callID is empty. Newest first.
func (s *Store) ListSARs(ctx context.Context, callID string, limit int) ([]SARRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit < 1 {
		limit = 20
	}

	query := `SELECT id, call_id, case_id, request_id, submitted_at FROM sar_submissions`
	args := []any{}
	if callID != "" {
		query += ` WHERE call_id = ?`
		args = append(args, callID)
	}
	query += ` ORDER BY submitted_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sar submissions: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []SARRecord
	for rows.Next() {
		var rec SARRecord
		var submittedAt int64
		if err := rows.Scan(&rec.ID, &rec.CallID, &rec.CaseID, &rec.RequestID, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan sar submission: %w", err)
		}
		rec.SubmittedAt = time.Unix(submittedAt, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sar submissions: %w", err)
	}

	return records, nil
}
