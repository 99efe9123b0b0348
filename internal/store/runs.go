package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
)

var _ pipeline.Cache = (*SQLiteStore)(nil)

// Run is one entry of the run history.
type Run struct {
	ID           string        `json:"id" yaml:"id"`
	ReportType   report.Type   `json:"report_type" yaml:"report_type"`
	Title        string        `json:"title" yaml:"title"`
	Notebook     string        `json:"notebook" yaml:"notebook"`
	Started      time.Time     `json:"started" yaml:"started"`
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
	Failed       bool          `json:"failed" yaml:"failed"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	GatewayCalls int           `json:"gateway_calls" yaml:"gateway_calls"`
	Degraded     []string      `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Outputs      []string      `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// RunFromTrace builds a history entry from a finished run.
func RunFromTrace(t *pipeline.Trace, doc *report.Document, notebook string, outputs []string) Run {
	r := Run{
		ID:           t.RunID,
		ReportType:   t.ReportType,
		Notebook:     notebook,
		Started:      t.Started,
		Elapsed:      t.Elapsed,
		Failed:       t.Failed,
		Error:        t.Error,
		GatewayCalls: t.GatewayCalls(),
		Outputs:      outputs,
	}
	if doc != nil {
		r.Title = doc.Title
		r.Degraded = doc.DegradedSections()
	}
	return r
}

// RecordRun appends a run to the history.
func (s *SQLiteStore) RecordRun(ctx context.Context, r Run) error {
	degraded, err := json.Marshal(nonNil(r.Degraded))
	if err != nil {
		return fmt.Errorf("encode degraded sections: %w", err)
	}
	outputs, err := json.Marshal(nonNil(r.Outputs))
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, report_type, title, notebook, started_at, elapsed_ms, failed, error, gateway_calls, degraded, outputs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.ReportType), r.Title, r.Notebook,
		r.Started.UTC().Format(time.RFC3339Nano), r.Elapsed.Milliseconds(),
		boolToInt(r.Failed), r.Error, r.GatewayCalls, string(degraded), string(outputs))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, report_type, title, notebook, started_at, elapsed_ms, failed, error, gateway_calls, degraded, outputs
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			reportType        string
			started           string
			elapsedMS         int64
			failed            int
			degraded, outputs string
		)
		if err := rows.Scan(&r.ID, &reportType, &r.Title, &r.Notebook, &started, &elapsedMS,
			&failed, &r.Error, &r.GatewayCalls, &degraded, &outputs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.ReportType = report.Type(reportType)
		r.Started, _ = time.Parse(time.RFC3339Nano, started)
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		r.Failed = failed != 0
		if err := json.Unmarshal([]byte(degraded), &r.Degraded); err != nil {
			return nil, fmt.Errorf("decode degraded for run %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(outputs), &r.Outputs); err != nil {
			return nil, fmt.Errorf("decode outputs for run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return runs, nil
}

func checkRowsErr(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
