package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voxsentry/voxsentry/internal/core"
)

func sampleSummary() *core.BatchSummary {
	verified := true
	return &core.BatchSummary{
		Total:        3,
		Succeeded:    2,
		Failed:       1,
		Retried:      2,
		AvgLatencyMs: 84,
		StartedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		CompletedAt:  time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC),
		Outcomes: []*core.RequestOutcome{
			{
				Item:           "call-1.wav",
				Succeeded:      true,
				AttemptsUsed:   1,
				TotalLatency:   80 * time.Millisecond,
				TerminalReason: core.ReasonSuccess,
				Response:       &core.Response{Score: 0.91, RiskBand: core.RiskBandHigh},
			},
			{
				Item:           "call-2.wav",
				Succeeded:      true,
				AttemptsUsed:   2,
				TotalLatency:   120 * time.Millisecond,
				TerminalReason: core.ReasonSuccess,
				Response:       &core.Response{Score: 0.03, Verified: &verified},
			},
			{
				Item:           "call-3.wav",
				AttemptsUsed:   3,
				TotalLatency:   400 * time.Millisecond,
				TerminalReason: core.ReasonMaxRetriesExceeded,
				Message:        "api error 503: unavailable",
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat(" markdown ")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	formatter := NewFormatter(FormatTable)

	rendered, err := formatter.FormatSummary(sampleSummary())
	require.NoError(t, err)
	require.Contains(t, rendered, "call-1.wav")
	require.Contains(t, rendered, "high")
	require.Contains(t, rendered, "verified")
	require.Contains(t, rendered, "max_retries_exceeded")
	require.Contains(t, rendered, "2/3 succeeded")
}

func TestMarkdownFormatter(t *testing.T) {
	formatter := NewFormatter(FormatMarkdown)

	rendered, err := formatter.FormatSummary(sampleSummary())
	require.NoError(t, err)
	require.Contains(t, rendered, "| call-1.wav |")
}

func TestJSONFormatter(t *testing.T) {
	formatter := NewFormatter(FormatJSON)

	rendered, err := formatter.FormatSummary(sampleSummary())
	require.NoError(t, err)

	var decoded core.BatchSummary
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, 3, decoded.Total)
	require.Len(t, decoded.Outcomes, 3)
}

func TestFormattersHandleNil(t *testing.T) {
	table, err := (&TableFormatter{}).FormatSummary(nil)
	require.NoError(t, err)
	require.Empty(t, table)

	jsonOut, err := (&JSONFormatter{}).FormatSummary(nil)
	require.NoError(t, err)
	require.Equal(t, "null", jsonOut)
}
