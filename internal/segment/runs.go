package segment

import (
	"fmt"

	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// Run is one maximal block of rows sharing a bucket. Rows [Start, End) belong
// to it.
type Run struct {
	GroupID   int
	Bucket    float64
	Defined   bool
	Start     int
	End       int
	StartTime uint64
	EndTime   uint64
}

// Rows returns the number of rows in the run.
func (r Run) Rows() int {
	return r.End - r.Start
}

// Duration returns the time between the first and last row of the run.
func (r Run) Duration() uint64 {
	return r.EndTime - r.StartTime
}

// Runs summarises the groups of column. It recomputes the buckets with fn so
// each Run carries its bucket value.
func Runs(table *telemetry.Table, column string, fn BucketFunc) ([]Run, error) {
	bs, err := buckets(table, column, fn)
	if err != nil {
		return nil, err
	}
	ts := table.Timestamps()
	var runs []Run
	for i := range bs {
		if i > 0 && bs[i] == bs[i-1] {
			runs[len(runs)-1].End = i + 1
			runs[len(runs)-1].EndTime = ts[i]
			continue
		}
		runs = append(runs, Run{
			GroupID:   len(runs),
			Bucket:    bs[i].value,
			Defined:   bs[i].defined,
			Start:     i,
			End:       i + 1,
			StartTime: ts[i],
			EndTime:   ts[i],
		})
	}
	return runs, nil
}

// Filter returns the runs for which keep reports true, in order.
func Filter(runs []Run, keep func(Run) bool) []Run {
	var out []Run
	for _, r := range runs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Select returns the runs whose bucket is defined and equal to value.
func Select(runs []Run, value float64) []Run {
	return Filter(runs, func(r Run) bool { return r.Defined && r.Bucket == value })
}

// Slice returns the rows of run as a new table.
func Slice(table *telemetry.Table, run Run) (*telemetry.Table, error) {
	if run.Start < 0 || run.End > table.Len() || run.Start >= run.End {
		return nil, fmt.Errorf("%w: run %d rows [%d,%d) outside table of %d rows",
			telemetry.ErrLookup, run.GroupID, run.Start, run.End, table.Len())
	}
	keep := make([]bool, table.Len())
	for i := run.Start; i < run.End; i++ {
		keep[i] = true
	}
	return table.Filter(keep)
}
