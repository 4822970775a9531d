package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trajectory.report/internal/config"
	"github.com/banshee-data/trajectory.report/internal/geo"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/pipeline"
	"github.com/banshee-data/trajectory.report/internal/report"
	"github.com/banshee-data/trajectory.report/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

var flatProjector = geo.ProjectorFunc(func(lat, lon float64) (float64, float64, int, error) {
	return lon * 1000, lat * 1000, 32, nil
})

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func analysed(t *testing.T) (*pipeline.Result, *report.Report) {
	t.Helper()
	res, err := pipeline.Run(testutil.FlightTopics(t, testutil.Flight()), pipeline.Config{Projector: flatProjector})
	require.NoError(t, err)
	rep, err := report.Build("test", res)
	require.NoError(t, err)
	return res, rep
}

func saveFixture(t *testing.T, db *DB, storeRows bool) string {
	t.Helper()
	res, rep := analysed(t)
	id, err := db.SaveRun(context.Background(), "", res, SaveOptions{
		Source:      "flight",
		MergePolicy: config.MergeOrdered,
		Config:      config.DefaultAnalysisConfig(),
		Summaries:   rep.Summaries,
		StoreRows:   storeRows,
	})
	require.NoError(t, err)
	return id
}

func TestNewDBPragmasAndMigrations(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var foreignKeys int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestMigrateDownAndUp(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'aligned_values'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestSaveAndLoadRun(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := saveFixture(t, db, true)

	_, err := uuid.Parse(id)
	require.NoError(t, err, "run id should be a UUID")

	runs, err := db.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].RunID)
	assert.Equal(t, "flight", runs[0].Source)
	assert.Equal(t, 6, runs[0].MergedRows)
	assert.Equal(t, 5, runs[0].Rows)
	assert.Equal(t, 2, runs[0].AutoRuns)

	var cfg config.AnalysisConfig
	require.NoError(t, json.Unmarshal(runs[0].Config, &cfg))
	assert.Equal(t, "ordered", cfg.GetMergePolicy())

	run, err := db.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, runs[0], *run)

	segs, err := db.Segments(ctx, id)
	require.NoError(t, err)
	manual, auto := 2.0, -1.0
	want := []SegmentRecord{
		{GroupID: 0, Bucket: &manual, StartRow: 0, EndRow: 1, StartTime: 0, EndTime: 0},
		{GroupID: 1, Bucket: &auto, StartRow: 1, EndRow: 2, StartTime: 10, EndTime: 10, Auto: true},
		{GroupID: 2, Bucket: &manual, StartRow: 2, EndRow: 3, StartTime: 30, EndTime: 30},
		{GroupID: 3, Bucket: &auto, StartRow: 3, EndRow: 5, StartTime: 40, EndTime: 50, Auto: true},
	}
	if diff := cmp.Diff(want, segs); diff != "" {
		t.Errorf("Segments mismatch (-want +got):\n%s", diff)
	}

	_, rep := analysed(t)
	sums, err := db.Summaries(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(rep.Summaries, sums); diff != "" {
		t.Errorf("Summaries mismatch (-want +got):\n%s", diff)
	}

	points, err := db.Series(ctx, id, pipeline.NavState)
	require.NoError(t, err)
	require.Len(t, points, 5)
	assert.Equal(t, uint64(40), points[3].Time)
	require.NotNil(t, points[3].Value)
	assert.Equal(t, 5.0, *points[3].Value)

	cols, err := db.ColumnNames(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, cols, pipeline.NavGroup)
	assert.Contains(t, cols, pipeline.Position.RelativeEasting())
}

func TestSaveRunWithoutRows(t *testing.T) {
	db := newTestDB(t)
	id := saveFixture(t, db, false)

	cols, err := db.ColumnNames(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestSaveRunExplicitID(t *testing.T) {
	db := newTestDB(t)
	res, _ := analysed(t)

	id, err := db.SaveRun(context.Background(), "fixed-id", res, SaveOptions{Source: "a"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	_, err = db.SaveRun(context.Background(), "fixed-id", res, SaveOptions{Source: "b"})
	require.Error(t, err, "duplicate run id")

	runs, err := db.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestGetRunNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteRunCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := saveFixture(t, db, true)

	require.NoError(t, db.DeleteRun(ctx, id))
	segs, err := db.Segments(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, segs)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM aligned_values`).Scan(&n))
	assert.Equal(t, 0, n)

	assert.True(t, errors.Is(db.DeleteRun(ctx, id), ErrNotFound))
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest(method, path))
	return rec
}

func TestAPIRoutes(t *testing.T) {
	db := newTestDB(t)
	id := saveFixture(t, db, true)
	mux := http.NewServeMux()
	db.AttachAPIRoutes(mux)

	rec := serve(mux, http.MethodGet, "/api/runs")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var runs []RunRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].RunID)

	rec = serve(mux, http.MethodGet, "/api/runs/"+id)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var detail RunDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&detail))
	assert.Len(t, detail.Segments, 4)
	assert.Len(t, detail.Summaries, 2)
	assert.NotEmpty(t, detail.Columns)

	rec = serve(mux, http.MethodGet, "/api/runs/"+id+"/series?column="+pipeline.NavGroup)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var points []Point
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&points))
	assert.Len(t, points, 5)

	testutil.AssertStatusCode(t, serve(mux, http.MethodGet, "/api/runs/"+id+"/series").Code, http.StatusBadRequest)
	testutil.AssertStatusCode(t, serve(mux, http.MethodGet, "/api/runs/"+id+"/series?column=nope").Code, http.StatusNotFound)
	testutil.AssertStatusCode(t, serve(mux, http.MethodGet, "/api/runs/missing").Code, http.StatusNotFound)
	testutil.AssertStatusCode(t, serve(mux, http.MethodPost, "/api/runs").Code, http.StatusMethodNotAllowed)

	testutil.AssertStatusCode(t, serve(mux, http.MethodDelete, "/api/runs/"+id).Code, http.StatusNoContent)
	testutil.AssertStatusCode(t, serve(mux, http.MethodGet, "/api/runs/"+id).Code, http.StatusNotFound)
}

func TestAPIEmptyList(t *testing.T) {
	db := newTestDB(t)
	mux := http.NewServeMux()
	db.AttachAPIRoutes(mux)

	rec := serve(mux, http.MethodGet, "/api/runs")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)
	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	for _, path := range []string{"/debug/tailsql/", "/debug/backup"} {
		rec := serve(mux, http.MethodGet, path)
		// Access control may answer 403; the route must exist.
		assert.NotEqual(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestHandleBackup(t *testing.T) {
	db := newTestDB(t)
	saveFixture(t, db, false)

	rec := testutil.NewTestRecorder()
	db.handleBackup(rec, testutil.NewTestRequest(http.MethodGet, "/debug/backup"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	gz, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("SQLite format 3")))
}
