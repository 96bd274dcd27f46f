package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/voxsentry/voxsentry/internal/config"
	"github.com/voxsentry/voxsentry/internal/core"
	"github.com/voxsentry/voxsentry/internal/core/engine"
	"github.com/voxsentry/voxsentry/internal/observability"
	"github.com/voxsentry/voxsentry/internal/output"
)

var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Process a manifest of calls through the fraud API",
	Long: `Read a YAML manifest of requests and run them through a bounded worker
pool. Every request shares one rate limiter and circuit breaker, so a
burst or an upstream outage slows the batch instead of failing it.

Manifest format:

  items:
    - kind: score          # score (default), verify, sar
      audio: calls/one.wav
      call_id: call-1
      metadata:
        branch: downtown
    - kind: verify
      call_id: call-2
      speaker_id: spk-9`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchCmd,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	batchCmd.Flags().Int("workers", 0, "Concurrent workers (defaults to config)")
	batchCmd.Flags().Bool("wait", false, "Wait for rate limit slots instead of rejecting")
	batchCmd.Flags().Bool("no-save", false, "Skip recording the run in local history")
}

// manifestItem is one request entry in a batch manifest file.
type manifestItem struct {
	Kind      string            `yaml:"kind"`
	Audio     string            `yaml:"audio"`
	CallID    string            `yaml:"call_id"`
	SpeakerID string            `yaml:"speaker_id"`
	Metadata  map[string]string `yaml:"metadata"`
}

type manifest struct {
	Items []manifestItem `yaml:"items"`
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}

	wait, err := cmd.Flags().GetBool("wait")
	if err != nil {
		return err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return err
	}

	items, err := readBatchManifest(args[0])
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("no items found in batch manifest")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if workers < 1 {
		workers = cfg.Workers
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

	coordinator := &engine.Coordinator{Executor: pipe.Executor, Workers: workers}
	summary, err := coordinator.Run(ctx, items)
	if err != nil {
		return err
	}

	if !noSave {
		saveRunHistory(ctx, cfg, summary)
	}

	if err := renderSummary(format, summary); err != nil {
		return err
	}
	if format != output.FormatJSON {
		logThroughput(summary.Total, startedAt)
	}
	return summaryError(summary)
}

func readBatchManifest(path string) ([]*engine.BatchItem, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the CLI argument
	if err != nil {
		return nil, err
	}

	var parsed manifest
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	items := make([]*engine.BatchItem, 0, len(parsed.Items))
	for i, entry := range parsed.Items {
		item, err := buildManifestItem(entry)
		if err != nil {
			return nil, fmt.Errorf("manifest item %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func buildManifestItem(entry manifestItem) (*engine.BatchItem, error) {
	kind := core.RequestKind(strings.ToLower(strings.TrimSpace(entry.Kind)))
	if kind == "" {
		kind = core.RequestKindScore
	}

	req := &core.Request{
		Kind:      kind,
		AudioPath: strings.TrimSpace(entry.Audio),
		CallID:    strings.TrimSpace(entry.CallID),
		SpeakerID: strings.TrimSpace(entry.SpeakerID),
		Metadata:  entry.Metadata,
	}

	switch kind {
	case core.RequestKindScore:
		if req.AudioPath == "" {
			return nil, errors.New("audio is required for score items")
		}
	case core.RequestKindVerify:
		if req.CallID == "" || req.SpeakerID == "" {
			return nil, errors.New("call_id and speaker_id are required for verify items")
		}
	case core.RequestKindSAR:
		if req.CallID == "" {
			return nil, errors.New("call_id is required for sar items")
		}
	default:
		return nil, fmt.Errorf("unsupported kind %q", entry.Kind)
	}

	name := req.CallID
	if kind == core.RequestKindScore {
		name = filepath.Base(req.AudioPath)
	}
	return &engine.BatchItem{Name: name, Request: req}, nil
}

// saveRunHistory records the batch in the local store. History failures never
// fail the run; the outcomes were already reported.
func saveRunHistory(ctx context.Context, cfg *config.Config, summary *core.BatchSummary) {
	db, err := openStore(ctx, cfg)
	if err != nil {
		if observability.CLILogger != nil {
			observability.CLILogger.Warn("Failed to open run history store", zap.Error(err))
		}
		return
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	if _, err := db.SaveRun(ctx, "batch", summary); err != nil && observability.CLILogger != nil {
		observability.CLILogger.Warn("Failed to record batch run", zap.Error(err))
	}
}
