package pipeline

import (
	"sort"

	"github.com/banshee-data/trajectory.report/internal/segment"
	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// Waypoint is one distinct setpoint target within a run, at the time it was
// first commanded, relative to the reference origin.
type Waypoint struct {
	Time  uint64
	East  float64
	North float64
}

// Waypoints lists the distinct relative setpoints of run in order of first
// appearance.
func Waypoints(table *telemetry.Table, run segment.Run) ([]Waypoint, error) {
	east, err := table.Column(Setpoint.RelativeEasting())
	if err != nil {
		return nil, err
	}
	north, err := table.Column(Setpoint.RelativeNorthing())
	if err != nil {
		return nil, err
	}
	ts := table.Timestamps()

	type target struct{ e, n float64 }
	seen := make(map[target]bool)
	var out []Waypoint
	for i := run.Start; i < run.End && i < table.Len(); i++ {
		if !east.Valid[i] || !north.Valid[i] {
			continue
		}
		k := target{east.Values[i], north.Values[i]}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, Waypoint{Time: ts[i], East: k.e, North: k.n})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}
