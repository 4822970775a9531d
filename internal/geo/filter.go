package geo

import (
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// Default validity bounds.
const (
	DefaultLatBound      = 80.0
	DefaultLonBound      = 180.0
	DefaultFlagThreshold = 0.1
)

// ValidityFilter drops rows whose coordinates cannot be trusted: any flag
// column at or below FlagThreshold, any source latitude outside
// [-LatBound, LatBound] or longitude outside [-LonBound, LonBound], or any of
// those cells undefined. Zero bounds use the defaults; FlagThreshold is used
// as given, so a zero threshold only rejects non-positive flags.
type ValidityFilter struct {
	Flags         []string
	FlagThreshold float64
	Sources       []Source
	LatBound      float64
	LonBound      float64
}

func (f ValidityFilter) bounds() (flag, lat, lon float64) {
	flag, lat, lon = f.FlagThreshold, f.LatBound, f.LonBound
	if lat == 0 {
		lat = DefaultLatBound
	}
	if lon == 0 {
		lon = DefaultLonBound
	}
	return flag, lat, lon
}

// Columns lists every column the filter reads.
func (f ValidityFilter) Columns() []string {
	cols := append([]string(nil), f.Flags...)
	for _, s := range f.Sources {
		cols = append(cols, s.Lat, s.Lon)
	}
	return cols
}

// Apply returns a new table holding only the rows that pass every bound.
// A missing column is an ErrLookup; nothing is dropped in that case.
func (f ValidityFilter) Apply(table *telemetry.Table) (*telemetry.Table, error) {
	if err := RequireColumns(table, f.Columns()...); err != nil {
		return nil, err
	}
	flagMin, latBound, lonBound := f.bounds()

	keep := make([]bool, table.Len())
	for i := range keep {
		keep[i] = true
	}
	reject := func(name string, ok func(v float64) bool) {
		c, _ := table.Column(name)
		for i := range keep {
			if keep[i] && (!c.Valid[i] || !ok(c.Values[i])) {
				keep[i] = false
			}
		}
	}

	for _, name := range f.Flags {
		reject(name, func(v float64) bool { return v > flagMin })
	}
	for _, s := range f.Sources {
		reject(s.Lat, func(v float64) bool { return v >= -latBound && v <= latBound })
		reject(s.Lon, func(v float64) bool { return v >= -lonBound && v <= lonBound })
	}

	out, err := table.Filter(keep)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("geo: validity filter kept %d of %d rows", out.Len(), table.Len())
	return out, nil
}
