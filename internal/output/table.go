package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/voxsentry/voxsentry/internal/core"
	"github.com/voxsentry/voxsentry/internal/core/store"
)

// TableFormatter renders summaries as an ASCII or Markdown table.
type TableFormatter struct {
	Markdown bool
}

// FormatSummary renders the per-item outcomes and an aggregate footer.
func (f *TableFormatter) FormatSummary(summary *core.BatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Item", "Result", "Attempts", "Latency", "Score", "Risk", "Notes"})

	for _, outcome := range summary.Outcomes {
		if outcome == nil {
			continue
		}
		t.AppendRow(table.Row{
			outcome.Item,
			string(outcome.TerminalReason),
			outcome.AttemptsUsed,
			formatLatency(outcome),
			formatScore(outcome),
			formatRisk(outcome),
			outcome.Message,
		})
	}

	t.AppendFooter(table.Row{
		"",
		fmt.Sprintf("%d/%d succeeded", summary.Succeeded, summary.Total),
		fmt.Sprintf("%d retried", summary.Retried),
		fmt.Sprintf("avg %.0fms", summary.AvgLatencyMs),
		"",
		"",
		footerNotes(summary),
	})

	if f.Markdown {
		return t.RenderMarkdown(), nil
	}
	return t.Render(), nil
}

// FormatRuns renders persisted run history.
func (f *TableFormatter) FormatRuns(runs []store.RunRecord) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Kind", "Started", "Total", "Succeeded", "Failed", "Retried", "Avg Latency"})

	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.Kind,
			run.StartedAt.Format(time.RFC3339),
			run.Total,
			run.Succeeded,
			run.Failed,
			run.Retried,
			fmt.Sprintf("%.0fms", run.AvgLatencyMs),
		})
	}

	if f.Markdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}

// FormatSARs renders the suspicious-activity report ledger.
func (f *TableFormatter) FormatSARs(records []store.SARRecord) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Call", "Case", "Request", "Submitted"})

	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.ID,
			rec.CallID,
			rec.CaseID,
			rec.RequestID,
			rec.SubmittedAt.Format(time.RFC3339),
		})
	}

	if f.Markdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}

func formatLatency(outcome *core.RequestOutcome) string {
	if outcome.AttemptsUsed == 0 {
		return "-"
	}
	return outcome.TotalLatency.Round(time.Millisecond).String()
}

func formatScore(outcome *core.RequestOutcome) string {
	if outcome.Response == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", outcome.Response.Score)
}

func formatRisk(outcome *core.RequestOutcome) string {
	if outcome.Response == nil {
		return "-"
	}
	if outcome.Response.Verified != nil {
		if *outcome.Response.Verified {
			return "verified"
		}
		return "mismatch"
	}
	return string(outcome.Response.RiskBand)
}

func footerNotes(summary *core.BatchSummary) string {
	var parts []string
	if summary.BreakerTrips > 0 {
		parts = append(parts, fmt.Sprintf("%d breaker", summary.BreakerTrips))
	}
	if summary.RateLimited > 0 {
		parts = append(parts, fmt.Sprintf("%d rate limited", summary.RateLimited))
	}
	if summary.Cancelled > 0 {
		parts = append(parts, fmt.Sprintf("%d cancelled", summary.Cancelled))
	}
	return strings.Join(parts, ", ")
}
