package report

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trajectory.report/internal/pipeline"
	"github.com/banshee-data/trajectory.report/internal/segment"
	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// RunSummary describes how closely the estimate tracked the setpoint during
// one auto run. Distances are horizontal, in metres.
type RunSummary struct {
	GroupID    int     `json:"group_id"`
	StartTime  uint64  `json:"start_time"`
	EndTime    uint64  `json:"end_time"`
	Rows       int     `json:"rows"`
	Waypoints  int     `json:"waypoints"`
	PathLength float64 `json:"path_length_m"`
	MeanError  float64 `json:"mean_error_m"`
	StdError   float64 `json:"std_error_m"`
	MaxError   float64 `json:"max_error_m"`
}

// Summarize computes the tracking statistics of run. Rows missing any of
// the relative coordinates are ignored.
func Summarize(table *telemetry.Table, run segment.Run, waypoints []pipeline.Waypoint) (RunSummary, error) {
	s := RunSummary{
		GroupID:   run.GroupID,
		StartTime: run.StartTime,
		EndTime:   run.EndTime,
		Rows:      run.Rows(),
		Waypoints: len(waypoints),
	}
	est, err := xySeries(table, pipeline.Position.RelativeEasting(), pipeline.Position.RelativeNorthing(), run.Start, run.End)
	if err != nil {
		return s, err
	}
	for i := 1; i < len(est); i++ {
		s.PathLength += math.Hypot(est[i].X-est[i-1].X, est[i].Y-est[i-1].Y)
	}

	names := []string{
		pipeline.Position.RelativeEasting(), pipeline.Position.RelativeNorthing(),
		pipeline.Setpoint.RelativeEasting(), pipeline.Setpoint.RelativeNorthing(),
	}
	cols := make([]*telemetry.Column, len(names))
	for i, n := range names {
		if cols[i], err = table.Column(n); err != nil {
			return s, err
		}
	}
	var dist []float64
	for r := run.Start; r < run.End; r++ {
		ok := true
		for _, c := range cols {
			ok = ok && c.Valid[r]
		}
		if !ok {
			continue
		}
		dist = append(dist, math.Hypot(cols[0].Values[r]-cols[2].Values[r], cols[1].Values[r]-cols[3].Values[r]))
	}
	if len(dist) == 0 {
		return s, nil
	}
	s.MeanError = stat.Mean(dist, nil)
	s.MaxError = floats.Max(dist)
	if len(dist) > 1 {
		s.StdError = stat.StdDev(dist, nil)
	}
	return s, nil
}
