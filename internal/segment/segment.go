// Package segment partitions a unified table into maximal contiguous runs of
// one (optionally bucketed) categorical column.
package segment

import (
	"fmt"

	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// BucketFunc maps a raw categorical value to the bucket used for run
// detection. Errors are treated as range errors of the caller's domain.
type BucketFunc func(v float64) (float64, error)

// Identity buckets every value as itself.
func Identity(v float64) (float64, error) {
	return v, nil
}

// Collapse maps every value in codes to sentinel and leaves the rest as-is.
func Collapse(codes []float64, sentinel float64) BucketFunc {
	set := make(map[float64]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return func(v float64) (float64, error) {
		if _, ok := set[v]; ok {
			return sentinel, nil
		}
		return v, nil
	}
}

// CollapseRange maps every value in [lo, hi] to sentinel.
func CollapseRange(lo, hi, sentinel float64) BucketFunc {
	return func(v float64) (float64, error) {
		if v >= lo && v <= hi {
			return sentinel, nil
		}
		return v, nil
	}
}

// Codes restricts a bucket function to an enumerated domain: values outside
// allowed fail with ErrRange before reaching fn.
func Codes(allowed []float64, fn BucketFunc) BucketFunc {
	set := make(map[float64]struct{}, len(allowed))
	for _, c := range allowed {
		set[c] = struct{}{}
	}
	if fn == nil {
		fn = Identity
	}
	return func(v float64) (float64, error) {
		if _, ok := set[v]; !ok {
			return 0, fmt.Errorf("%w: code %v not in domain", telemetry.ErrRange, v)
		}
		return fn(v)
	}
}

// bucket is the comparison key of one row. Undefined cells form their own
// bucket.
type bucket struct {
	defined bool
	value   float64
}

func buckets(table *telemetry.Table, column string, fn BucketFunc) ([]bucket, error) {
	col, err := table.Column(column)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		fn = Identity
	}
	out := make([]bucket, table.Len())
	for i := range out {
		if !col.Valid[i] {
			continue
		}
		b, err := fn(col.Values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", column, i, err)
		}
		out[i] = bucket{defined: true, value: b}
	}
	return out, nil
}

// Segment assigns a group id to every row: 0 for the first row, unchanged
// while the bucketed value repeats, incremented by one where it changes. A nil
// fn is Identity. An empty table yields an empty slice.
func Segment(table *telemetry.Table, column string, fn BucketFunc) ([]int, error) {
	bs, err := buckets(table, column, fn)
	if err != nil {
		return nil, err
	}
	groups := make([]int, len(bs))
	for i := 1; i < len(bs); i++ {
		groups[i] = groups[i-1]
		if bs[i] != bs[i-1] {
			groups[i]++
		}
	}
	return groups, nil
}

// Label computes the group ids of column and stores them in a new column
// named out.
func Label(table *telemetry.Table, column string, fn BucketFunc, out string) ([]int, error) {
	groups, err := Segment(table, column, fn)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(groups))
	for i, g := range groups {
		values[i] = float64(g)
	}
	if err := table.AddColumn(out, values, nil); err != nil {
		return nil, err
	}
	return groups, nil
}
