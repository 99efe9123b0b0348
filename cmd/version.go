/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"runtime"

	"github.com/josephgoksu/ReportWing/internal/logger"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ReportWing version",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Missing crash log directory is the common case.
		crashes, _ := logger.ListCrashLogs()
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"version":    version,
				"go":         runtime.Version(),
				"os":         runtime.GOOS + "/" + runtime.GOARCH,
				"crash_logs": crashes,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reportwing %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if n := len(crashes); n > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%d crash log(s); latest: %s\n", n, crashes[n-1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
