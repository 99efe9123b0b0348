/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/josephgoksu/ReportWing/internal/app"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/ui"
	"github.com/spf13/cobra"
)

var (
	genType          string
	genFormat        string
	genOutput        string
	genName          string
	genTitle         string
	genAuthor        string
	genInstitution   string
	genSupplementary string
	genDiagramStyle  string
	genIncludeCode   bool
	genOffline       bool
	genWatch         bool
	genPreview       bool
	genDryRun        bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <notebook.ipynb|directory>",
	Short: "Generate a report from a Jupyter notebook",
	Long: `Generate a report from a Jupyter notebook.

Given a directory, every *.ipynb below it gets its own report, named after
the notebook. Checkpoint and other hidden directories are skipped.

The report type selects the section template:
  academic    abstract, methodology, results, discussion, conclusion
  internship  executive summary, implementation, learning outcomes
  industry    executive summary, methodology, results, recommendations
  research    abstract, related work, methodology, discussion, future work

Run 'reportwing templates' for the full section lists.

With --offline no model is contacted; every model-written section falls back
to placeholder text and is flagged as degraded.`,
	Example: `  reportwing generate churn.ipynb
  reportwing generate churn.ipynb --type industry --format all -o reports/
  reportwing generate churn.ipynb --format pdf --include-code-snippets
  reportwing generate notebooks/ --diagram-style minimal
  reportwing generate churn.ipynb --watch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actx, err := openContext()
		if err != nil {
			return err
		}
		defer func() { _ = actx.Close() }()

		a := app.NewReportApp(actx)
		req := app.GenerateRequest{
			Notebook:      args[0],
			ReportType:    genType,
			Format:        genFormat,
			OutputDir:     genOutput,
			Name:          genName,
			Title:         genTitle,
			Author:        genAuthor,
			Institution:   genInstitution,
			Supplementary: genSupplementary,
			DiagramStyle:  genDiagramStyle,
			IncludeCode:   genIncludeCode,
			Offline:       genOffline,
			NoWrite:       genDryRun,
		}
		if !isJSON() {
			req.OnStage = func(st pipeline.StageTrace) {
				fmt.Fprintln(cmd.ErrOrStderr(), ui.StageLine(st))
			}
		}

		if genWatch {
			if info, err := actx.Fs.Stat(args[0]); err == nil && info.IsDir() {
				return fmt.Errorf("--watch needs a single notebook, %s is a directory", args[0])
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", args[0])
			return a.Watch(ctx, req, app.WatchOptions{
				OnResult: func(res *app.GenerateResult, err error) {
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s generation failed: %v\n", ui.Icon("✗", ui.StyleError), err)
						return
					}
					_ = printResult(cmd.OutOrStdout(), res)
				},
			})
		}

		results, err := a.GenerateAll(cmd.Context(), req)
		if len(results) == 1 && err == nil {
			return printResult(cmd.OutOrStdout(), results[0])
		}
		if isJSON() && len(results) > 0 {
			if perr := printJSON(cmd.OutOrStdout(), results); perr != nil {
				return perr
			}
			return err
		}
		for _, res := range results {
			if perr := printResult(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
		}
		return err
	},
}

func printResult(w io.Writer, res *app.GenerateResult) error {
	if isJSON() {
		return printJSON(w, res)
	}
	fmt.Fprintln(w, ui.RunSummary(res.Document, res.Trace, res.Outputs))
	if genPreview {
		out, err := ui.RenderMarkdown(res.Markdown, 0)
		if err != nil {
			return fmt.Errorf("render preview: %w", err)
		}
		fmt.Fprint(w, out)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(generateCmd)

	f := generateCmd.Flags()
	f.StringVarP(&genType, "type", "t", "", "report type: academic, internship, industry, research (default from config)")
	f.StringVarP(&genFormat, "format", "f", "", "output format: markdown, json, yaml, pdf, all (default from config)")
	f.StringVarP(&genOutput, "output", "o", "", "output directory (default from config)")
	f.StringVar(&genName, "name", "", "output file name without extension (default derived from the title)")
	f.StringVar(&genTitle, "title", "", "override the report title")
	f.StringVar(&genAuthor, "author", "", "author shown in the header")
	f.StringVar(&genInstitution, "institution", "", "institution or company shown in the header")
	f.StringVar(&genSupplementary, "supplementary", "", "extra context passed to the writing stages")
	f.StringVar(&genDiagramStyle, "diagram-style", "", "diagram detail: minimal, standard, detailed (default from config)")
	f.BoolVar(&genIncludeCode, "include-code-snippets", false, "add code listings to the methodology and implementation sections")
	f.BoolVar(&genOffline, "offline", false, "do not contact a model; use fallback text")
	f.BoolVarP(&genWatch, "watch", "w", false, "regenerate whenever the notebook changes")
	f.BoolVarP(&genPreview, "preview", "p", false, "render the Markdown report in the terminal")
	f.BoolVar(&genDryRun, "dry-run", false, "run the pipeline without writing files")
}
