/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"

	"github.com/josephgoksu/ReportWing/internal/app"
	"github.com/josephgoksu/ReportWing/internal/ui"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent report runs",
	Long: `Show recent report runs recorded in the local cache database, newest first.

Each run lists the report type, gateway calls, elapsed time and any sections
that were generated from fallback content.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		actx, err := openContext()
		if err != nil {
			return err
		}
		defer func() { _ = actx.Close() }()

		runs, err := app.NewReportApp(actx).History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet. Run 'reportwing generate <notebook>' first.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.HistoryTable(runs))
		return nil
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Delete cached stage output used for last-good fallbacks",
	RunE: func(cmd *cobra.Command, args []string) error {
		actx, err := openContext()
		if err != nil {
			return err
		}
		defer func() { _ = actx.Close() }()
		if actx.Store == nil {
			return fmt.Errorf("cache is disabled (cache.enabled=false)")
		}
		n, err := actx.Store.ClearCache(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %d cached stage outputs\n", ui.Icon("✓", ui.StyleSuccess), n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(clearCacheCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show (0 = all)")
}
