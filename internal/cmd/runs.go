package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxsentry/voxsentry/internal/output"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent batch runs",
	Long:  "List batch runs recorded in local history, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var sarsCmd = &cobra.Command{
	Use:   "sars",
	Short: "List filed suspicious-activity reports",
	Long:  "List SAR submissions recorded in the local ledger, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSARs,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(sarsCmd)

	runsCmd.Flags().Int("limit", 20, "Maximum runs to list")
	runsCmd.Flags().String("output", "table", "Output format: table, json, markdown")

	sarsCmd.Flags().Int("limit", 20, "Maximum submissions to list")
	sarsCmd.Flags().String("call-id", "", "Only show submissions for this call")
	sarsCmd.Flags().String("output", "table", "Output format: table, json, markdown")
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
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

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		encoded, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	formatter := &output.TableFormatter{Markdown: format == output.FormatMarkdown}
	fmt.Println(formatter.FormatRuns(runs))
	return nil
}

func runSARs(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	callID, err := cmd.Flags().GetString("call-id")
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

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	records, err := db.ListSARs(ctx, callID, limit)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		encoded, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	formatter := &output.TableFormatter{Markdown: format == output.FormatMarkdown}
	fmt.Println(formatter.FormatSARs(records))
	return nil
}
