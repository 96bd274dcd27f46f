package cmd

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxsentry/voxsentry/internal/core"
	"github.com/voxsentry/voxsentry/internal/core/engine"
	"github.com/voxsentry/voxsentry/internal/output"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <call-id>",
	Short: "Verify a scored call against an enrolled speaker",
	Long:  "Match the audio already scored under the given call ID against an enrolled speaker profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("speaker-id", "", "Enrolled speaker to match against (required)")
	verifyCmd.Flags().StringSlice("metadata", nil, "Request metadata as key=value (repeatable)")
	verifyCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	verifyCmd.Flags().Bool("wait", false, "Wait for a rate limit slot instead of rejecting")
}

func runVerify(cmd *cobra.Command, args []string) error {
	callID := strings.TrimSpace(args[0])
	if callID == "" {
		return errors.New("call id is required")
	}

	speakerID, err := cmd.Flags().GetString("speaker-id")
	if err != nil {
		return err
	}
	if strings.TrimSpace(speakerID) == "" {
		return errors.New("speaker-id is required")
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
	startedAt := time.Now()

	coordinator := &engine.Coordinator{Executor: pipe.Executor, Workers: 1}
	summary, err := coordinator.Run(ctx, []*engine.BatchItem{{
		Name: callID,
		Request: &core.Request{
			Kind:      core.RequestKindVerify,
			CallID:    callID,
			SpeakerID: strings.TrimSpace(speakerID),
			Metadata:  metadata,
		},
	}})
	if err != nil {
		return err
	}

	if err := renderSummary(format, summary); err != nil {
		return err
	}
	if format != output.FormatJSON {
		logThroughput(summary.Total, startedAt)
	}
	return summaryError(summary)
}
