package report

import (
	"gonum.org/v1/plot/plotter"

	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// secondsPerTick converts log timestamps (microseconds) to seconds.
const secondsPerTick = 1e-6

// xySeries pairs two columns row by row over [start, end), skipping rows
// where either cell is undefined.
func xySeries(table *telemetry.Table, xName, yName string, start, end int) (plotter.XYs, error) {
	x, err := table.Column(xName)
	if err != nil {
		return nil, err
	}
	y, err := table.Column(yName)
	if err != nil {
		return nil, err
	}
	out := make(plotter.XYs, 0, end-start)
	for i := start; i < end; i++ {
		if x.Valid[i] && y.Valid[i] {
			out = append(out, plotter.XY{X: x.Values[i], Y: y.Values[i]})
		}
	}
	return out, nil
}

// timeSeries pairs seconds since origin with one column.
func timeSeries(table *telemetry.Table, name string, origin uint64) (plotter.XYs, error) {
	col, err := table.Column(name)
	if err != nil {
		return nil, err
	}
	ts := table.Timestamps()
	out := make(plotter.XYs, 0, len(ts))
	for i, t := range ts {
		if col.Valid[i] {
			out = append(out, plotter.XY{X: seconds(t, origin), Y: col.Values[i]})
		}
	}
	return out, nil
}

func seconds(t, origin uint64) float64 {
	return float64(t-origin) * secondsPerTick
}

func origin(table *telemetry.Table) uint64 {
	if table.Len() == 0 {
		return 0
	}
	return table.Timestamps()[0]
}
