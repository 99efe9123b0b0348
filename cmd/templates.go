/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/josephgoksu/ReportWing/internal/app"
	"github.com/josephgoksu/ReportWing/internal/stages"
	"github.com/josephgoksu/ReportWing/internal/ui"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List report types and their sections",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos := app.Templates()
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), infos)
		}
		t := &ui.Table{Headers: []string{"TYPE", "SECTIONS", "STAGE ORDER"}, MaxWidth: 80}
		for _, info := range infos {
			t.Rows = append(t.Rows, []string{
				string(info.Type),
				strings.Join(info.Sections, ", "),
				strings.Join(info.Stages, " → "),
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List registered pipeline stages",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos := stages.Registry()
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), infos)
		}
		t := &ui.Table{Headers: []string{"STAGE", "DESCRIPTION"}}
		for _, info := range infos {
			t.Rows = append(t.Rows, []string{info.Name, info.Description})
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(stagesCmd)
}
