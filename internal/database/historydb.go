package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/staticmirror/internal/asset"
	"github.com/nao1215/staticmirror/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "staticmirror.db"

// Run states stored in the runs table.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// HistoryDB provides SQLite-based storage for scrape run history.
//
// It satisfies pipeline.Recorder, so a Mirror can write to it directly.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		out_dir TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		pages_written INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		assets_downloaded INTEGER DEFAULT 0,
		assets_reused INTEGER DEFAULT 0,
		assets_failed INTEGER DEFAULT 0,
		fallback_404 INTEGER DEFAULT 0,
		error TEXT,
		report_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_base_url ON runs(base_url);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		output_path TEXT NOT NULL,
		status TEXT NOT NULL,
		localized INTEGER DEFAULT 0,
		asset_failures INTEGER DEFAULT 0,
		kept_remote INTEGER DEFAULT 0,
		worker_rewritten INTEGER DEFAULT 0,
		hash TEXT,
		error TEXT,
		duration_ms INTEGER DEFAULT 0,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);

	-- Assets record the first outcome per URL; hits counts every request.
	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		path TEXT NOT NULL,
		status TEXT NOT NULL,
		bytes INTEGER DEFAULT 0,
		hits INTEGER DEFAULT 1,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_assets_run ON assets(run_id);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID               string    `json:"id"`
	BaseURL          string    `json:"base_url"`
	OutDir           string    `json:"out_dir"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	Status           string    `json:"status"`
	PagesWritten     int       `json:"pages_written"`
	PagesFailed      int       `json:"pages_failed"`
	AssetsDownloaded int64     `json:"assets_downloaded"`
	AssetsReused     int64     `json:"assets_reused"`
	AssetsFailed     int64     `json:"assets_failed"`
	Fallback404      bool      `json:"fallback_404"`
	Error            string    `json:"error,omitempty"`
}

// PageRecord is one row of the pages table.
type PageRecord struct {
	URL             string        `json:"url"`
	OutputPath      string        `json:"output_path"`
	Status          string        `json:"status"`
	Localized       int           `json:"localized"`
	AssetFailures   int           `json:"asset_failures"`
	KeptRemote      int           `json:"kept_remote"`
	WorkerRewritten bool          `json:"worker_rewritten"`
	Hash            string        `json:"hash,omitempty"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// AssetRecord is one row of the assets table.
type AssetRecord struct {
	URL    string `json:"url"`
	Path   string `json:"path"`
	Status string `json:"status"`
	Bytes  int    `json:"bytes"`
	Hits   int    `json:"hits"`
}

// StartRun inserts a run in the running state.
func (hdb *HistoryDB) StartRun(ctx context.Context, report *model.MirrorReport) error {
	query := `
	INSERT INTO runs (id, base_url, out_dir, started_at, status)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		base_url = excluded.base_url,
		out_dir = excluded.out_dir,
		started_at = excluded.started_at,
		status = excluded.status
	`

	_, err := hdb.db.ExecContext(ctx, query,
		report.RunID,
		report.BaseURL,
		report.OutDir,
		formatTimestamp(report.StartedAt),
		RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// RecordPage inserts or updates the result of one page.
func (hdb *HistoryDB) RecordPage(ctx context.Context, runID string, result model.PageResult) error {
	query := `
	INSERT INTO pages (run_id, url, output_path, status, localized, asset_failures, kept_remote, worker_rewritten, hash, error, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		output_path = excluded.output_path,
		status = excluded.status,
		localized = excluded.localized,
		asset_failures = excluded.asset_failures,
		kept_remote = excluded.kept_remote,
		worker_rewritten = excluded.worker_rewritten,
		hash = excluded.hash,
		error = excluded.error,
		duration_ms = excluded.duration_ms
	`

	_, err := hdb.db.ExecContext(ctx, query,
		runID,
		result.URL,
		result.OutputPath,
		string(result.Status),
		result.Localized,
		result.AssetFailures,
		result.KeptRemote,
		boolToInt(result.WorkerRewritten),
		result.Hash,
		result.Error,
		result.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record page: %w", err)
	}
	return nil
}

// RecordAsset records one asset request. The first outcome for a URL is
// kept; later requests only increase the hit count.
func (hdb *HistoryDB) RecordAsset(ctx context.Context, runID string, event asset.Event) error {
	query := `
	INSERT INTO assets (run_id, url, path, status, bytes)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET hits = hits + 1
	`

	_, err := hdb.db.ExecContext(ctx, query,
		runID,
		event.URL,
		event.Path,
		string(event.Status),
		event.Bytes,
	)
	if err != nil {
		return fmt.Errorf("failed to record asset: %w", err)
	}
	return nil
}

// FinishRun stores the final totals and the JSON report of a run.
func (hdb *HistoryDB) FinishRun(ctx context.Context, report *model.MirrorReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	status := RunStatusSucceeded
	if !report.Succeeded() {
		status = RunStatusFailed
	}

	query := `
	UPDATE runs SET
		finished_at = ?,
		status = ?,
		pages_written = ?,
		pages_failed = ?,
		assets_downloaded = ?,
		assets_reused = ?,
		assets_failed = ?,
		fallback_404 = ?,
		error = ?,
		report_json = ?
	WHERE id = ?
	`

	res, err := hdb.db.ExecContext(ctx, query,
		formatTimestamp(report.FinishedAt),
		status,
		report.CountByStatus(model.PageStatusWritten),
		report.CountByStatus(model.PageStatusFailed),
		report.Assets.Downloaded,
		report.Assets.Reused,
		report.Assets.Failed,
		boolToInt(report.Fallback404),
		report.Error,
		string(reportJSON),
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, report.RunID)
	}
	return nil
}

const runColumns = `id, base_url, out_dir, started_at, COALESCE(finished_at, ''), status,
	pages_written, pages_failed, assets_downloaded, assets_reused, assets_failed,
	fallback_404, COALESCE(error, '')`

// ListRuns returns the most recent runs first. A limit of 0 returns all runs.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose ID equals id or, failing that, the single run
// whose ID starts with id.
func (hdb *HistoryDB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	fullID, err := hdb.resolveRunID(ctx, id)
	if err != nil {
		return nil, err
	}

	row := hdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, fullID)
	return scanRun(row)
}

// GetRunPages returns the pages of a run in the order they were recorded.
func (hdb *HistoryDB) GetRunPages(ctx context.Context, id string) ([]PageRecord, error) {
	runID, err := hdb.resolveRunID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT url, output_path, status, localized, asset_failures, kept_remote,
		worker_rewritten, COALESCE(hash, ''), COALESCE(error, ''), duration_ms
	FROM pages WHERE run_id = ? ORDER BY id
	`

	rows, err := hdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var (
			page       PageRecord
			worker     int
			durationMS int64
		)
		if err := rows.Scan(
			&page.URL, &page.OutputPath, &page.Status, &page.Localized, &page.AssetFailures,
			&page.KeptRemote, &worker, &page.Hash, &page.Error, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		page.WorkerRewritten = worker != 0
		page.Duration = time.Duration(durationMS) * time.Millisecond
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// GetRunAssets returns the assets of a run in the order they were first seen.
func (hdb *HistoryDB) GetRunAssets(ctx context.Context, id string) ([]AssetRecord, error) {
	runID, err := hdb.resolveRunID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := hdb.db.QueryContext(ctx,
		`SELECT url, path, status, bytes, hits FROM assets WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []AssetRecord
	for rows.Next() {
		var a AssetRecord
		if err := rows.Scan(&a.URL, &a.Path, &a.Status, &a.Bytes, &a.Hits); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// GetReport returns the stored JSON report of a finished run.
func (hdb *HistoryDB) GetReport(ctx context.Context, id string) (*model.MirrorReport, error) {
	runID, err := hdb.resolveRunID(ctx, id)
	if err != nil {
		return nil, err
	}

	var reportJSON sql.NullString
	err = hdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, runID).Scan(&reportJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	if !reportJSON.Valid || reportJSON.String == "" {
		return nil, fmt.Errorf("run %s has no report (still running or interrupted)", runID)
	}

	var report model.MirrorReport
	if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// resolveRunID expands an ID prefix to a full run ID.
func (hdb *HistoryDB) resolveRunID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrRunNotFound
	}

	rows, err := hdb.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' LIMIT 2`, id, escapeLike(id)+"%")
	if err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var found string
		if err := rows.Scan(&found); err != nil {
			return "", fmt.Errorf("failed to scan run ID: %w", err)
		}
		if found == id {
			return found, nil
		}
		ids = append(ids, found)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
	}
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		run        RunRecord
		startedAt  string
		finishedAt string
		fallback   int
	)
	err := row.Scan(
		&run.ID, &run.BaseURL, &run.OutDir, &startedAt, &finishedAt, &run.Status,
		&run.PagesWritten, &run.PagesFailed, &run.AssetsDownloaded, &run.AssetsReused,
		&run.AssetsFailed, &fallback, &run.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	run.Fallback404 = fallback != 0
	return &run, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// storedTimeFormat has a fixed width so that lexical order is time order.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimeFormat)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
