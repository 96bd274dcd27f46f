package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voxsentry/voxsentry/internal/config"
	"github.com/voxsentry/voxsentry/internal/core"
	"github.com/voxsentry/voxsentry/internal/core/client"
	"github.com/voxsentry/voxsentry/internal/core/engine"
	"github.com/voxsentry/voxsentry/internal/metrics"
	"github.com/voxsentry/voxsentry/internal/observability"
	"github.com/voxsentry/voxsentry/internal/output"
)

// pipeline bundles the resilience components every request command shares.
// The limiter and breaker are process-wide: all workers in a batch observe
// the same admission and trip state.
type pipeline struct {
	Executor  *engine.Executor
	Limiter   *engine.TokenBucket
	Breaker   *engine.Breaker
	Collector *metrics.Collector
}

// buildPipeline wires the rate limiter, circuit breaker, retry policy and API
// client from config into a ready executor.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config not loaded")
	}

	limiter, err := engine.NewTokenBucket(cfg.Resilience.RatePerSecond, cfg.Resilience.BurstCapacity)
	if err != nil {
		return nil, err
	}

	breaker, err := engine.NewBreaker(cfg.Resilience.FailureThreshold, cfg.Resilience.SuccessThreshold, cfg.Resilience.RecoveryTimeout)
	if err != nil {
		return nil, err
	}

	policy, err := engine.NewRetryPolicy(cfg.Resilience.MaxAttempts, cfg.Resilience.BaseDelay, cfg.Resilience.MaxDelay)
	if err != nil {
		return nil, err
	}

	collector := &metrics.Collector{}

	executor := &engine.Executor{
		Transport: &client.Client{
			BaseURL:       cfg.API.BaseURL,
			APIKey:        cfg.API.Key,
			ToolVersion:   versionInfo.Version,
			MaxAudioBytes: cfg.API.MaxAudioBytes,
		},
		Limiter:     limiter,
		Breaker:     breaker,
		Policy:      policy,
		Timeout:     cfg.Resilience.PerRequestTimeout,
		WaitForSlot: cfg.Resilience.WaitForSlot,
		Metrics:     collector,
	}

	return &pipeline{
		Executor:  executor,
		Limiter:   limiter,
		Breaker:   breaker,
		Collector: collector,
	}, nil
}

// parseMetadata converts repeated key=value flags into a metadata map.
func parseMetadata(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	metadata := make(map[string]string, len(values))
	for _, value := range values {
		key, val, found := strings.Cut(value, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid metadata entry %q, expected key=value", value)
		}
		metadata[key] = strings.TrimSpace(val)
	}
	return metadata, nil
}

// renderSummary prints the batch summary in the requested format.
func renderSummary(format output.Format, summary *core.BatchSummary) error {
	formatter := output.NewFormatter(format)
	rendered, err := formatter.FormatSummary(summary)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rendered) != "" {
		fmt.Println(rendered)
	}
	return nil
}

// summaryError converts non-success outcomes into a command error so the
// process exit code reflects the run result. Rejected and cancelled requests
// count as failures here even though the summary tracks them separately.
func summaryError(summary *core.BatchSummary) error {
	if summary == nil {
		return nil
	}
	failed := summary.Total - summary.Succeeded
	if failed <= 0 {
		return nil
	}
	return fmt.Errorf("%d of %d requests failed", failed, summary.Total)
}

func logThroughput(count int, startedAt time.Time) {
	if count <= 0 || observability.CLILogger == nil {
		return
	}
	elapsed := time.Since(startedAt)
	if elapsed <= 0 {
		return
	}
	rate := float64(count) / elapsed.Seconds()
	observability.CLILogger.Info(
		"Request throughput",
		zap.Int("requests", count),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rate_per_sec", rate),
	)
}
