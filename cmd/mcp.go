/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/josephgoksu/ReportWing/internal/app"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI tool integration",
	Long: `Start a Model Context Protocol (MCP) server over stdio so AI assistants
can generate reports from notebooks.

Tools:
  generate_report   run the pipeline on a notebook and write the report
  list_templates    list report types with their sections

The server will run until the client disconnects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// GenerateReportParams are the arguments of the generate_report tool.
type GenerateReportParams struct {
	Notebook     string `json:"notebook"`                        // Required: path to the .ipynb file
	Type         string `json:"type,omitempty"`                  // academic, internship, industry, research
	Format       string `json:"format,omitempty"`                // markdown, json, yaml, pdf, all
	OutputDir    string `json:"output_dir,omitempty"`            // defaults to output.dir
	Title        string `json:"title,omitempty"`                 // overrides the derived title
	Author       string `json:"author,omitempty"`                // header byline
	Institution  string `json:"institution,omitempty"`           // header byline
	DiagramStyle string `json:"diagram_style,omitempty"`         // minimal, standard, detailed
	IncludeCode  bool   `json:"include_code_snippets,omitempty"` // code listings in methodology and implementation
	Offline      bool   `json:"offline,omitempty"`               // use fallback text instead of a model
	DryRun       bool   `json:"dry_run,omitempty"`               // return the Markdown without writing files
}

// ListTemplatesParams are the arguments of the list_templates tool.
type ListTemplatesParams struct{}

// mcpMarkdownResponse wraps Markdown content in an MCP tool result.
func mcpMarkdownResponse(markdown string) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: markdown}},
	}, nil
}

// mcpErrorResponse reports a tool failure in the result so the client's
// model can see it and correct its arguments.
func mcpErrorResponse(err error) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "**Error:** " + err.Error()}},
		IsError: true,
	}, nil
}

func runMCPServer(ctx context.Context) error {
	// stdout carries JSON-RPC; status output goes to stderr.
	fmt.Fprintln(os.Stderr, "ReportWing MCP Server starting...")

	actx, err := openContext()
	if err != nil {
		return err
	}
	defer func() { _ = actx.Close() }()
	reports := app.NewReportApp(actx)

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "reportwing-mcp", Version: version}, &mcpsdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.InitializedParams) {
			fmt.Fprintln(os.Stderr, "✓ MCP connection established")
		},
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name: "generate_report",
		Description: `Generate a report from a Jupyter notebook.
Required: notebook (path to .ipynb).
Optional: type (academic|internship|industry|research), format (markdown|json|yaml|pdf|all),
output_dir, title, author, institution, diagram_style (minimal|standard|detailed),
include_code_snippets, offline, dry_run.
Returns the output paths and any degraded sections; with dry_run the Markdown itself.`,
	}, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[GenerateReportParams]) (*mcpsdk.CallToolResultFor[any], error) {
		args := params.Arguments
		if strings.TrimSpace(args.Notebook) == "" {
			return mcpErrorResponse(fmt.Errorf("notebook is required"))
		}
		res, err := reports.Generate(ctx, app.GenerateRequest{
			Notebook:     args.Notebook,
			ReportType:   args.Type,
			Format:       args.Format,
			OutputDir:    args.OutputDir,
			Title:        args.Title,
			Author:       args.Author,
			Institution:  args.Institution,
			DiagramStyle: args.DiagramStyle,
			IncludeCode:  args.IncludeCode,
			Offline:      args.Offline,
			NoWrite:      args.DryRun,
		})
		if err != nil {
			return mcpErrorResponse(err)
		}
		return mcpMarkdownResponse(formatGenerateResult(res, args.DryRun))
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "list_templates",
		Description: "List report types with their section order and stage execution order.",
	}, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[ListTemplatesParams]) (*mcpsdk.CallToolResultFor[any], error) {
		return mcpMarkdownResponse(formatTemplates(app.Templates()))
	})

	if err := server.Run(ctx, mcpsdk.NewStdioTransport()); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// formatGenerateResult renders a generation outcome as compact Markdown.
func formatGenerateResult(res *app.GenerateResult, withMarkdown bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", res.Document.Title)
	fmt.Fprintf(&sb, "- Run: `%s`\n", res.RunID)
	fmt.Fprintf(&sb, "- Type: %s\n", res.Document.ReportType)
	fmt.Fprintf(&sb, "- Sections: %d\n", len(res.Document.Sections))
	if res.Trace != nil {
		fmt.Fprintf(&sb, "- Gateway calls: %d\n", res.Trace.GatewayCalls())
	}
	if len(res.Degraded) > 0 {
		fmt.Fprintf(&sb, "- Degraded: %s\n", strings.Join(res.Degraded, ", "))
	}
	if len(res.Outputs) > 0 {
		sb.WriteString("\n### Files\n")
		for _, p := range res.Outputs {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}
	if withMarkdown {
		sb.WriteString("\n---\n\n")
		sb.WriteString(res.Markdown)
	}
	return sb.String()
}

func formatTemplates(infos []app.TemplateInfo) string {
	var sb strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&sb, "## %s\n", info.Type)
		fmt.Fprintf(&sb, "- Sections: %s\n", strings.Join(info.Sections, ", "))
		fmt.Fprintf(&sb, "- Stage order: %s\n\n", strings.Join(info.Stages, ", "))
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}
