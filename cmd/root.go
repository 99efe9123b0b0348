/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"os"

	"github.com/josephgoksu/ReportWing/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables debug logging.
	verbose bool
	// jsonOutput switches command output to JSON.
	jsonOutput bool
	// version is the application version.
	version = "0.3.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reportwing",
	Short: "ReportWing - Notebook to Report Generator",
	Long: `ReportWing turns a Jupyter notebook into a structured report.

A staged pipeline analyzes the notebook, asks a language model to write each
section, draws Mermaid diagrams and builds the bibliography. Sections that
cannot be generated fall back to placeholder or cached text and are flagged
as degraded.

Examples:
  reportwing generate analysis.ipynb
  reportwing generate analysis.ipynb --type industry --format all
  reportwing generate analysis.ipynb --offline --preview`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetCommand(cmd.CommandPath())
		logger.SetVersion(version)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetVersion returns the CLI version.
func GetVersion() string {
	return version
}

func init() {
	cobra.OnInitialize(InitConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./reportwing.yaml or ~/.reportwing/reportwing.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine-readable JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}
