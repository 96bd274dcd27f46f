package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voxsentry/voxsentry/internal/core"
	"github.com/voxsentry/voxsentry/internal/core/engine"
	"github.com/voxsentry/voxsentry/internal/core/store"
	"github.com/voxsentry/voxsentry/internal/observability"
	"github.com/voxsentry/voxsentry/internal/output"
)

var sarCmd = &cobra.Command{
	Use:   "sar <call-id>",
	Short: "File a suspicious-activity report for a flagged call",
	Long: `File a suspicious-activity report (SAR) for a call previously flagged
by scoring or verification. Accepted submissions are recorded in the
local ledger; use "voxsentry sars" to review past filings.`,
	Args: cobra.ExactArgs(1),
	RunE: runSAR,
}

func init() {
	rootCmd.AddCommand(sarCmd)

	sarCmd.Flags().String("speaker-id", "", "Speaker implicated by the report")
	sarCmd.Flags().StringSlice("metadata", nil, "Request metadata as key=value (repeatable)")
	sarCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	sarCmd.Flags().Bool("wait", false, "Wait for a rate limit slot instead of rejecting")
}

func runSAR(cmd *cobra.Command, args []string) error {
	callID := strings.TrimSpace(args[0])
	if callID == "" {
		return errors.New("call id is required")
	}

	speakerID, err := cmd.Flags().GetString("speaker-id")
	if err != nil {
		return err
	}

	metadataRaw, err := cmd.Flags().GetStringSlice("metadata")
	if err != nil {
		return err
	}
	metadata, err := parseMetadata(metadataRaw)
	if err != nil {
		return err
	}

	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	wait, err := cmd.Flags().GetBool("wait")
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	if wait {
		pipe.Executor.WaitForSlot = true
	}

	ctx := cmd.Context()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	coordinator := &engine.Coordinator{Executor: pipe.Executor, Workers: 1}
	summary, err := coordinator.Run(ctx, []*engine.BatchItem{{
		Name: callID,
		Request: &core.Request{
			Kind:      core.RequestKindSAR,
			CallID:    callID,
			SpeakerID: strings.TrimSpace(speakerID),
			Metadata:  metadata,
		},
	}})
	if err != nil {
		return err
	}

	recordSARSubmissions(ctx, db, summary)

	if err := renderSummary(format, summary); err != nil {
		return err
	}
	return summaryError(summary)
}

// recordSARSubmissions appends accepted filings to the local ledger. Ledger
// failures never fail the command; the report was already accepted upstream.
func recordSARSubmissions(ctx context.Context, db *store.Store, summary *core.BatchSummary) {
	if db == nil || summary == nil {
		return
	}

	for _, outcome := range summary.Outcomes {
		if outcome == nil || !outcome.Succeeded || outcome.Response == nil {
			continue
		}
		rec := store.SARRecord{
			CallID:      outcome.Item,
			CaseID:      outcome.Response.CaseID,
			RequestID:   outcome.Response.RequestID,
			SubmittedAt: time.Now().UTC(),
		}
		if _, err := db.SaveSAR(ctx, rec); err != nil && observability.CLILogger != nil {
			observability.CLILogger.Warn("Failed to record SAR submission",
				zap.String("call_id", rec.CallID),
				zap.Error(err))
		}
	}
}
