package store

import (
	"net/http"

	"github.com/banshee-data/trajectory.report/internal/httputil"
	"github.com/banshee-data/trajectory.report/internal/report"
)

// RunDetail is the API view of one stored analysis.
type RunDetail struct {
	RunRecord
	Segments  []SegmentRecord     `json:"segments"`
	Summaries []report.RunSummary `json:"summaries"`
	Columns   []string            `json:"columns"`
}

// AttachAPIRoutes mounts the read-only results API on mux:
//
//	GET    /api/runs                       list runs
//	GET    /api/runs/{id}                  one run with segments and summaries
//	GET    /api/runs/{id}/series?column=c  one stored column
//	DELETE /api/runs/{id}                  remove a run
func (db *DB) AttachAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/runs", db.handleRuns)
	mux.HandleFunc("/api/runs/{id}", db.handleRun)
	mux.HandleFunc("/api/runs/{id}/series", db.handleSeries)
}

func (db *DB) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	runs, err := db.ListRuns(r.Context())
	if err != nil {
		httputil.WriteError(w, err, ErrNotFound)
		return
	}
	if runs == nil {
		runs = []RunRecord{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (db *DB) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		if err := db.DeleteRun(r.Context(), id); err != nil {
			httputil.WriteError(w, err, ErrNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		httputil.MethodNotAllowed(w)
		return
	}

	run, err := db.GetRun(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err, ErrNotFound)
		return
	}
	detail := RunDetail{RunRecord: *run}
	if detail.Segments, err = db.Segments(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if detail.Summaries, err = db.Summaries(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if detail.Columns, err = db.ColumnNames(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, detail)
}

func (db *DB) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id := r.PathValue("id")
	column := r.URL.Query().Get("column")
	if column == "" {
		httputil.BadRequest(w, "column parameter is required")
		return
	}
	if _, err := db.GetRun(r.Context(), id); err != nil {
		httputil.WriteError(w, err, ErrNotFound)
		return
	}
	points, err := db.Series(r.Context(), id, column)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(points) == 0 {
		httputil.NotFound(w, "no stored values for column "+column)
		return
	}
	httputil.WriteJSONOK(w, points)
}
