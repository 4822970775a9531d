// Package align merges independently sampled topic tables onto one timeline.
//
// Two policies are available. The as-of merge follows the cadence of one
// anchor topic and takes every other topic's latest sample at or before each
// anchor timestamp. The ordered merge unions every timestamp, holds the
// designated piecewise-constant columns forward, linearly interpolates the
// rest, and drops rows that remain incomplete.
package align

import (
	"fmt"
	"sort"

	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// Policy selects the merge algorithm.
type Policy string

const (
	// PolicyOrdered is the ordered-outer merge with hold / linear fill.
	PolicyOrdered Policy = "ordered"
	// PolicyAsOf is the backward as-of merge on an anchor topic.
	PolicyAsOf Policy = "asof"
)

// ParsePolicy maps a configuration string to a Policy. The empty string
// selects PolicyOrdered.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyOrdered:
		return PolicyOrdered, nil
	case PolicyAsOf:
		return PolicyAsOf, nil
	default:
		return "", fmt.Errorf("%w: unknown merge policy %q (want %q or %q)",
			telemetry.ErrConfiguration, s, PolicyOrdered, PolicyAsOf)
	}
}

// Options configures Merge.
type Options struct {
	Policy Policy

	// Anchor drives the output timeline of PolicyAsOf.
	Anchor telemetry.TopicKey

	// HoldColumns are namespaced column names filled by zero-order hold
	// under PolicyOrdered.
	HoldColumns []string

	// HoldTopics adds every column of these topics to the hold set.
	HoldTopics []telemetry.TopicKey
}

// Merge namespaces tables and aligns them with the selected policy.
func Merge(tables map[telemetry.TopicKey]*telemetry.TopicTable, opts Options) (*telemetry.Table, error) {
	switch opts.Policy {
	case "", PolicyOrdered:
		return MergeOrdered(tables, opts)
	case PolicyAsOf:
		return MergeAsOf(tables, opts.Anchor)
	default:
		return nil, fmt.Errorf("%w: unknown merge policy %q", telemetry.ErrConfiguration, opts.Policy)
	}
}

// prepare namespaces and validates the input and returns its keys in order.
func prepare(tables map[telemetry.TopicKey]*telemetry.TopicTable) ([]telemetry.TopicKey, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no topic to merge on", telemetry.ErrConfiguration)
	}
	for key, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("%w: topic %s has no table", telemetry.ErrConfiguration, key)
		}
	}
	telemetry.Namespace(tables)
	keys := telemetry.SortedKeys(tables)
	for _, key := range keys {
		if err := tables[key].Validate(); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// MergeAsOf builds one row per distinct anchor timestamp. Each topic
// contributes its most recent sample with timestamp <= the row timestamp
// (backward direction); cells with no such sample stay undefined. Rows are
// not dropped.
func MergeAsOf(tables map[telemetry.TopicKey]*telemetry.TopicTable, anchor telemetry.TopicKey) (*telemetry.Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no topic to merge on", telemetry.ErrConfiguration)
	}
	if _, ok := tables[anchor]; !ok {
		return nil, fmt.Errorf("%w: anchor topic %s not in input", telemetry.ErrConfiguration, anchor)
	}
	keys, err := prepare(tables)
	if err != nil {
		return nil, err
	}

	timeline := dedup(append([]uint64(nil), tables[anchor].Timestamps...))
	out, err := telemetry.NewTable(timeline)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		t := tables[key]
		src := asOfIndex(t.Timestamps, timeline)
		for f, name := range t.Fields {
			values := make([]float64, len(timeline))
			valid := make([]bool, len(timeline))
			for r, s := range src {
				if s < 0 {
					continue
				}
				values[r] = t.Values[f][s]
				valid[r] = true
			}
			if err := out.AddColumn(name, values, valid); err != nil {
				return nil, fmt.Errorf("topic %s: %w", key, err)
			}
		}
	}

	monitoring.Logf("align: as-of merge of %d topics on %s: %d rows, %d columns",
		len(keys), anchor, out.Len(), len(out.Columns()))
	return out, nil
}

// asOfIndex returns, for every row time, the index of the last sample at or
// before it, or -1.
func asOfIndex(samples, timeline []uint64) []int {
	idx := make([]int, len(timeline))
	j := 0
	for r, ts := range timeline {
		for j < len(samples) && samples[j] <= ts {
			j++
		}
		idx[r] = j - 1
	}
	return idx
}

// MergeOrdered builds the union timeline of every topic, places each sample at
// its own timestamp, fills hold columns forward and interpolates the rest
// linearly, then drops rows that are still incomplete.
func MergeOrdered(tables map[telemetry.TopicKey]*telemetry.TopicTable, opts Options) (*telemetry.Table, error) {
	keys, err := prepare(tables)
	if err != nil {
		return nil, err
	}

	hold, err := holdSet(tables, opts)
	if err != nil {
		return nil, err
	}

	var all []uint64
	for _, key := range keys {
		all = append(all, tables[key].Timestamps...)
	}
	timeline := dedup(all)
	full, err := telemetry.NewTable(timeline)
	if err != nil {
		return nil, err
	}
	xs := make([]float64, len(timeline))
	for i, ts := range timeline {
		xs[i] = float64(ts)
	}

	for _, key := range keys {
		t := tables[key]
		rows := rowIndex(t.Timestamps, timeline)
		for f, name := range t.Fields {
			values := make([]float64, len(timeline))
			valid := make([]bool, len(timeline))
			for s, r := range rows {
				// later samples at the same timestamp overwrite earlier ones
				values[r] = t.Values[f][s]
				valid[r] = true
			}
			if hold[name] {
				filled := holdForward(values, valid)
				monitoring.Debugf("align: %s held forward into %d cells", name, filled)
			} else {
				filled, err := interpolateLinear(values, valid, xs)
				if err != nil {
					return nil, fmt.Errorf("topic %s: column %q: %w", key, name, err)
				}
				monitoring.Debugf("align: %s interpolated into %d cells", name, filled)
			}
			if err := full.AddColumn(name, values, valid); err != nil {
				return nil, fmt.Errorf("topic %s: %w", key, err)
			}
		}
	}

	out := full.DropIncomplete()
	monitoring.Logf("align: ordered merge of %d topics: %d timeline rows, %d complete, %d columns (%d held)",
		len(keys), full.Len(), out.Len(), len(out.Columns()), len(hold))
	return out, nil
}

// holdSet resolves the hold columns and topics against the namespaced input.
func holdSet(tables map[telemetry.TopicKey]*telemetry.TopicTable, opts Options) (map[string]bool, error) {
	known := make(map[string]bool)
	for _, t := range tables {
		for _, f := range t.Fields {
			known[f] = true
		}
	}

	hold := make(map[string]bool)
	for _, name := range opts.HoldColumns {
		if !known[name] {
			return nil, fmt.Errorf("%w: hold column %q not in any topic", telemetry.ErrLookup, name)
		}
		hold[name] = true
	}
	for _, key := range opts.HoldTopics {
		t, ok := tables[key]
		if !ok {
			return nil, fmt.Errorf("%w: hold topic %s not in input", telemetry.ErrLookup, key)
		}
		for _, f := range t.Fields {
			hold[f] = true
		}
	}
	return hold, nil
}

// rowIndex maps every sample to its row in the timeline. Both slices are
// sorted and every sample time is present in the timeline.
func rowIndex(samples, timeline []uint64) []int {
	rows := make([]int, len(samples))
	r := 0
	for s, ts := range samples {
		for timeline[r] < ts {
			r++
		}
		rows[s] = r
	}
	return rows
}

// dedup sorts ts in place and removes repeated values.
func dedup(ts []uint64) []uint64 {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	out := ts[:0]
	for _, v := range ts {
		if len(out) > 0 && v == out[len(out)-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}
