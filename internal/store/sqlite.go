// Package store persists pipeline state between runs: the last good output
// of every stage and a history of completed runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements pipeline.Cache and the run history using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	basePath string
}

// NewSQLiteStore opens (or creates) reportwing.db under basePath.
// ":memory:" opens a private in-memory database.
func NewSQLiteStore(basePath string) (*SQLiteStore, error) {
	var dbPath string
	if basePath == ":memory:" {
		dbPath = ":memory:"
	} else {
		dbPath = filepath.Join(basePath, "reportwing.db")
		if err := os.MkdirAll(basePath, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Each pooled connection to ":memory:" would see its own empty database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, basePath: basePath}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Superseded by last_good, which is keyed per project.
	DROP TABLE IF EXISTS stage_cache;

	CREATE TABLE IF NOT EXISTS last_good (
		project TEXT NOT NULL,
		report_type TEXT NOT NULL,
		stage TEXT NOT NULL,
		sections TEXT NOT NULL,             -- JSON []report.Section
		updated_at TEXT NOT NULL,
		PRIMARY KEY (project, report_type, stage)
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		report_type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		notebook TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		gateway_calls INTEGER NOT NULL DEFAULT 0,
		degraded TEXT NOT NULL DEFAULT '[]',  -- JSON []string
		outputs TEXT NOT NULL DEFAULT '[]'    -- JSON []string
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Get returns the last good sections recorded for a stage.
func (s *SQLiteStore) Get(ctx context.Context, key pipeline.CacheKey) ([]report.Section, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT sections FROM last_good WHERE project = ? AND report_type = ? AND stage = ?`,
		key.Project, string(key.ReportType), key.Stage).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query stage cache: %w", err)
	}
	var sections []report.Section
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		return nil, false, fmt.Errorf("decode cached sections for %s/%s: %w", key.ReportType, key.Stage, err)
	}
	return sections, true, nil
}

// Put replaces the cached sections for a stage.
func (s *SQLiteStore) Put(ctx context.Context, key pipeline.CacheKey, sections []report.Section) error {
	raw, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO last_good (project, report_type, stage, sections, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project, report_type, stage) DO UPDATE SET sections = excluded.sections, updated_at = excluded.updated_at`,
		key.Project, string(key.ReportType), key.Stage, string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert stage cache: %w", err)
	}
	return nil
}

// ClearCache drops every cached stage output.
func (s *SQLiteStore) ClearCache(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM last_good`)
	if err != nil {
		return 0, fmt.Errorf("clear stage cache: %w", err)
	}
	return res.RowsAffected()
}
