package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/internal/store"
)

// StageIcon is the status glyph for a stage outcome.
func StageIcon(st pipeline.StageTrace) string {
	glyph := "✗"
	switch {
	case st.LastGood:
		glyph = "↺"
	case st.Outcome == pipeline.OutcomeSucceeded:
		glyph = "✓"
	case st.Outcome == pipeline.OutcomeDegraded:
		glyph = "!"
	}
	return Icon(glyph, OutcomeStyle(st))
}

// StageLine is the one-line progress message printed as a stage finishes.
func StageLine(st pipeline.StageTrace) string {
	line := fmt.Sprintf("%s %-18s %s", StageIcon(st), st.Stage, StyleSubtle.Render(st.Elapsed.Round(time.Millisecond).String()))
	if st.Reason != "" && st.Outcome != pipeline.OutcomeSucceeded {
		line += " " + StyleSubtle.Render(firstLine(st.Reason))
	}
	return line
}

// RunSummary renders the per-stage table and the files written for a run.
func RunSummary(doc *report.Document, trace *pipeline.Trace, outputs []string) string {
	var sb strings.Builder
	title := "Report"
	if doc != nil && doc.Title != "" {
		title = doc.Title
	}
	sb.WriteString(StyleHeader.Render(title))
	sb.WriteString("\n\n")

	if trace != nil {
		t := &Table{Headers: []string{"", "Stage", "Outcome", "Attempts", "Elapsed", "Policy"}, MaxWidth: 40}
		for _, st := range trace.Stages {
			outcome := string(st.Outcome)
			if st.LastGood {
				outcome += " (last good)"
			}
			policy := ""
			if st.Outcome != pipeline.OutcomeSucceeded {
				policy = string(st.Policy)
			}
			t.Rows = append(t.Rows, []string{
				StageIcon(st), st.Stage, outcome,
				fmt.Sprintf("%d", st.Attempts),
				st.Elapsed.Round(time.Millisecond).String(),
				policy,
			})
		}
		sb.WriteString(t.Render())
		fmt.Fprintf(&sb, "\n %s\n", StyleSubtle.Render(fmt.Sprintf("run %s · %d gateway calls · %s",
			shortID(trace.RunID), trace.GatewayCalls(), trace.Elapsed.Round(time.Millisecond))))
	}

	if doc != nil {
		if degraded := doc.DegradedSections(); len(degraded) > 0 {
			fmt.Fprintf(&sb, " %s\n", StyleWarning.Render("Degraded sections: "+strings.Join(degraded, ", ")))
		}
	}
	if len(outputs) > 0 {
		sb.WriteString("\n")
		for _, p := range outputs {
			fmt.Fprintf(&sb, " %s %s\n", Icon("→", StyleSuccess), p)
		}
	}
	return sb.String()
}

// HistoryTable renders past runs, most recent first.
func HistoryTable(runs []store.Run) string {
	if len(runs) == 0 {
		return StyleSubtle.Render("No runs recorded yet.") + "\n"
	}
	t := &Table{Headers: []string{"Run", "Started", "Type", "Title", "Calls", "Status"}, MaxWidth: 36}
	for _, r := range runs {
		status := StyleSuccess.Render("ok")
		switch {
		case r.Failed:
			status = StyleError.Render("failed")
		case len(r.Degraded) > 0:
			status = StyleWarning.Render(fmt.Sprintf("%d degraded", len(r.Degraded)))
		}
		t.Rows = append(t.Rows, []string{
			shortID(r.ID),
			r.Started.Local().Format("2006-01-02 15:04"),
			string(r.ReportType),
			r.Title,
			fmt.Sprintf("%d", r.GatewayCalls),
			status,
		})
	}
	return t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
