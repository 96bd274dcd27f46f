package cmd

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxsentry/voxsentry/internal/core"
	"github.com/voxsentry/voxsentry/internal/core/engine"
	"github.com/voxsentry/voxsentry/internal/output"
)

var scoreCmd = &cobra.Command{
	Use:   "score <audio-file>",
	Short: "Score call audio for synthetic voice markers",
	Long:  "Upload call audio for deepfake analysis and print the fraud score and risk band",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().String("call-id", "", "Call identifier to attach to the analysis")
	scoreCmd.Flags().StringSlice("metadata", nil, "Request metadata as key=value (repeatable)")
	scoreCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	scoreCmd.Flags().Bool("wait", false, "Wait for a rate limit slot instead of rejecting")
}

func runScore(cmd *cobra.Command, args []string) error {
	audioPath := strings.TrimSpace(args[0])

	callID, err := cmd.Flags().GetString("call-id")
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
	startedAt := time.Now()

	coordinator := &engine.Coordinator{Executor: pipe.Executor, Workers: 1}
	summary, err := coordinator.Run(ctx, []*engine.BatchItem{{
		Name: filepath.Base(audioPath),
		Request: &core.Request{
			Kind:      core.RequestKindScore,
			AudioPath: audioPath,
			CallID:    callID,
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
