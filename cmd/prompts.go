/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/josephgoksu/ReportWing/internal/config"
	"github.com/josephgoksu/ReportWing/internal/ui"
	"github.com/josephgoksu/ReportWing/prompts"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List prompt templates and their override files",
	Long: `List the prompt templates the pipeline renders.

Any template can be replaced by a file named <key>.tmpl in the directory set
by prompts.dir. Overrides use Go text/template syntax with the same fields
as the built-in prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		loader := prompts.NewLoader(afero.NewOsFs(), settings.Prompts.Dir)

		type row struct {
			Key    prompts.PromptKey `json:"key"`
			File   string            `json:"file"`
			Source string            `json:"source"`
		}
		var rows []row
		for _, key := range prompts.Keys() {
			_, custom, err := loader.Get(key)
			if err != nil {
				return err
			}
			r := row{Key: key, File: prompts.Filename(key), Source: "built-in"}
			if custom {
				r.File = filepath.Join(settings.Prompts.Dir, r.File)
				r.Source = "override"
			}
			rows = append(rows, r)
		}

		if isJSON() {
			return printJSON(cmd.OutOrStdout(), rows)
		}
		t := &ui.Table{Headers: []string{"KEY", "SOURCE", "FILE"}}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{string(r.Key), r.Source, r.File})
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print a prompt template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		text, err := prompts.GetPrompt(prompts.PromptKey(args[0]), settings.Prompts.Dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.AddCommand(promptsShowCmd)
}
