package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for full details including Crucible and Go versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%s %s\n", appName, versionInfo.Version)
		if !extended {
			return nil
		}

		fmt.Printf("Commit: %s\n", versionInfo.Commit)
		fmt.Printf("Built: %s\n", versionInfo.BuildDate)
		fmt.Printf("Go: %s\n\n", runtime.Version())

		deps := crucible.GetVersion()
		fmt.Printf("Gofulmen: %s\n", deps.Gofulmen)
		fmt.Printf("Crucible: %s\n", deps.Crucible)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
