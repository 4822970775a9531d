// Package store persists analysis results in SQLite.
//
// Each analysis is one row of analysis_runs keyed by a UUID; its runs,
// per-run summaries and, optionally, the aligned table in long form hang
// off it. The schema is managed by embedded golang-migrate migrations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/pipeline"
	"github.com/banshee-data/trajectory.report/internal/report"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

type DB struct {
	*sql.DB
	path string
}

// NewDB opens the database at path, applies pragmas and migrates the schema
// to the latest version.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps per-connection pragmas in force.
	sqlDB.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	db := &DB{DB: sqlDB, path: path}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// RunRecord is one stored analysis.
type RunRecord struct {
	RunID       string          `json:"run_id"`
	Source      string          `json:"source"`
	MergePolicy string          `json:"merge_policy"`
	StartedAt   time.Time       `json:"started_at"`
	MergedRows  int             `json:"merged_rows"`
	Rows        int             `json:"rows"`
	AutoRuns    int             `json:"auto_runs"`
	Config      json.RawMessage `json:"config"`
}

// SegmentRecord is one stored run of the navigation state. Bucket is nil
// for runs of undefined cells.
type SegmentRecord struct {
	GroupID   int      `json:"group_id"`
	Bucket    *float64 `json:"bucket"`
	StartRow  int      `json:"start_row"`
	EndRow    int      `json:"end_row"`
	StartTime uint64   `json:"start_time"`
	EndTime   uint64   `json:"end_time"`
	Auto      bool     `json:"auto"`
}

// SaveOptions selects what SaveRun writes besides the run and its segments.
type SaveOptions struct {
	Source      string
	MergePolicy string
	Config      any
	Summaries   []report.RunSummary
	// StoreRows writes every cell of the aligned table.
	StoreRows bool
}

// SaveRun stores res in one transaction and returns its run id. runID may
// be empty, in which case a new UUID is assigned.
func (db *DB) SaveRun(ctx context.Context, runID string, res *pipeline.Result, opts SaveOptions) (string, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	cfg := []byte("{}")
	if opts.Config != nil {
		var err error
		if cfg, err = json.Marshal(opts.Config); err != nil {
			return "", fmt.Errorf("failed to encode config: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analysis_runs (
			run_id, source, merge_policy, started_at, merged_rows, row_count, auto_runs, config_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, opts.Source, opts.MergePolicy, res.StartedAt.UnixNano(),
		res.MergedRows, res.Table.Len(), len(res.AutoRuns), string(cfg),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	auto := make(map[int]bool, len(res.AutoRuns))
	for _, r := range res.AutoRuns {
		auto[r.GroupID] = true
	}
	for _, r := range res.Runs {
		var bucket any
		if r.Defined {
			bucket = r.Bucket
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_segments (
				run_id, group_id, bucket, start_row, end_row, start_time, end_time, is_auto
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, r.GroupID, bucket, r.Start, r.End, int64(r.StartTime), int64(r.EndTime), auto[r.GroupID],
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert segment %d: %w", r.GroupID, err)
		}
	}

	for _, s := range opts.Summaries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_summaries (
				run_id, group_id, waypoints, path_length_m, mean_error_m, std_error_m, max_error_m
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, s.GroupID, s.Waypoints, s.PathLength, s.MeanError, s.StdError, s.MaxError,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert summary %d: %w", s.GroupID, err)
		}
	}

	if opts.StoreRows {
		if err := insertRows(ctx, tx, runID, res); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	monitoring.Logf("store: saved run %s (%d segments, %d summaries)", runID, len(res.Runs), len(opts.Summaries))
	return runID, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, runID string, res *pipeline.Result) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO aligned_values (run_id, row_idx, timestamp, column_name, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := res.Table.Timestamps()
	for _, col := range res.Table.Columns() {
		for i := range ts {
			var v any
			if col.Valid[i] {
				v = col.Values[i]
			}
			if _, err := stmt.ExecContext(ctx, runID, i, int64(ts[i]), col.Name, v); err != nil {
				return fmt.Errorf("failed to insert %s row %d: %w", col.Name, i, err)
			}
		}
	}
	return nil
}

const runColumns = `run_id, source, merge_policy, started_at, merged_rows, row_count, auto_runs, config_json`

func scanRun(row interface{ Scan(...any) error }) (RunRecord, error) {
	var r RunRecord
	var started int64
	var cfg string
	if err := row.Scan(&r.RunID, &r.Source, &r.MergePolicy, &started, &r.MergedRows, &r.Rows, &r.AutoRuns, &cfg); err != nil {
		return r, err
	}
	r.StartedAt = time.Unix(0, started).UTC()
	r.Config = json.RawMessage(cfg)
	return r, nil
}

// ListRuns returns every stored run, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM analysis_runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns one run or ErrNotFound.
func (db *DB) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	r, err := scanRun(db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM analysis_runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Segments returns the runs of one analysis in row order.
func (db *DB) Segments(ctx context.Context, runID string) ([]SegmentRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT group_id, bucket, start_row, end_row, start_time, end_time, is_auto
		FROM run_segments WHERE run_id = ? ORDER BY group_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SegmentRecord
	for rows.Next() {
		var s SegmentRecord
		var bucket sql.NullFloat64
		var start, end int64
		if err := rows.Scan(&s.GroupID, &bucket, &s.StartRow, &s.EndRow, &start, &end, &s.Auto); err != nil {
			return nil, err
		}
		if bucket.Valid {
			v := bucket.Float64
			s.Bucket = &v
		}
		s.StartTime, s.EndTime = uint64(start), uint64(end)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Summaries returns the stored auto-run summaries of one analysis.
func (db *DB) Summaries(ctx context.Context, runID string) ([]report.RunSummary, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT m.group_id, s.start_time, s.end_time, s.end_row - s.start_row,
			m.waypoints, m.path_length_m, m.mean_error_m, m.std_error_m, m.max_error_m
		FROM run_summaries m
		JOIN run_segments s ON s.run_id = m.run_id AND s.group_id = m.group_id
		WHERE m.run_id = ? ORDER BY m.group_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.RunSummary
	for rows.Next() {
		var s report.RunSummary
		var start, end int64
		if err := rows.Scan(&s.GroupID, &start, &end, &s.Rows,
			&s.Waypoints, &s.PathLength, &s.MeanError, &s.StdError, &s.MaxError); err != nil {
			return nil, err
		}
		s.StartTime, s.EndTime = uint64(start), uint64(end)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Point is one stored cell of the aligned table. Value is nil when the cell
// was undefined.
type Point struct {
	Time  uint64   `json:"t"`
	Value *float64 `json:"v"`
}

// Series returns one column of a stored aligned table in row order.
func (db *DB) Series(ctx context.Context, runID, column string) ([]Point, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT timestamp, value FROM aligned_values
		WHERE run_id = ? AND column_name = ? ORDER BY row_idx`, runID, column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var ts int64
		var v sql.NullFloat64
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, err
		}
		p := Point{Time: uint64(ts)}
		if v.Valid {
			f := v.Float64
			p.Value = &f
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ColumnNames lists the stored columns of a run.
func (db *DB) ColumnNames(ctx context.Context, runID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT column_name FROM aligned_values WHERE run_id = ? ORDER BY column_name`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything stored for it.
func (db *DB) DeleteRun(ctx context.Context, runID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM analysis_runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}
