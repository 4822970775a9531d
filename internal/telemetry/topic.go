package telemetry

import (
	"fmt"
	"sort"
)

// TimestampColumn is the reserved name of the time column. It is never
// namespaced and never appears among a table's fields.
const TimestampColumn = "timestamp"

// TopicKey identifies one source of a topic. Instance disambiguates several
// concurrent publishers of the same topic.
type TopicKey struct {
	Name     string
	Instance int
}

func (k TopicKey) String() string {
	return fmt.Sprintf("%s_%d", k.Name, k.Instance)
}

// Less orders keys by name, then instance.
func (k TopicKey) Less(o TopicKey) bool {
	if k.Name != o.Name {
		return k.Name < o.Name
	}
	return k.Instance < o.Instance
}

// SortedKeys returns the keys of tables in TopicKey order. Every multi-topic
// operation iterates in this order so column order is deterministic.
func SortedKeys(tables map[TopicKey]*TopicTable) []TopicKey {
	keys := make([]TopicKey, 0, len(tables))
	for k := range tables {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// TopicTable is one decoded topic instance. Values is column-major: Values[f]
// holds field Fields[f] for every timestamp.
type TopicTable struct {
	Key        TopicKey
	Fields     []string
	Timestamps []uint64
	Values     [][]float64
}

// NewTopicTable creates an empty table for key with the given field order.
func NewTopicTable(key TopicKey, fields []string) *TopicTable {
	values := make([][]float64, len(fields))
	return &TopicTable{
		Key:    key,
		Fields: append([]string(nil), fields...),
		Values: values,
	}
}

// Len returns the number of samples.
func (t *TopicTable) Len() int {
	return len(t.Timestamps)
}

// Append adds one sample. Timestamps must be non-decreasing and values must
// carry one entry per field.
func (t *TopicTable) Append(ts uint64, values []float64) error {
	if len(values) != len(t.Fields) {
		return fmt.Errorf("%w: topic %s: sample has %d values, want %d",
			ErrConfiguration, t.Key, len(values), len(t.Fields))
	}
	if n := len(t.Timestamps); n > 0 && ts < t.Timestamps[n-1] {
		return fmt.Errorf("%w: topic %s: timestamp %d before previous %d",
			ErrConfiguration, t.Key, ts, t.Timestamps[n-1])
	}
	t.Timestamps = append(t.Timestamps, ts)
	for i, v := range values {
		t.Values[i] = append(t.Values[i], v)
	}
	return nil
}

// FieldIndex returns the position of field, or -1.
func (t *TopicTable) FieldIndex(field string) int {
	for i, f := range t.Fields {
		if f == field {
			return i
		}
	}
	return -1
}

// Validate checks the table invariants: sorted timestamps, unique field names,
// no field named timestamp and one full-length value slice per field.
func (t *TopicTable) Validate() error {
	if len(t.Values) != len(t.Fields) {
		return fmt.Errorf("%w: topic %s: %d value columns for %d fields",
			ErrConfiguration, t.Key, len(t.Values), len(t.Fields))
	}
	seen := make(map[string]struct{}, len(t.Fields))
	for i, f := range t.Fields {
		if f == TimestampColumn {
			return fmt.Errorf("%w: topic %s: field %q is reserved", ErrConfiguration, t.Key, f)
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("%w: topic %s: duplicate field %q", ErrConfiguration, t.Key, f)
		}
		seen[f] = struct{}{}
		if len(t.Values[i]) != len(t.Timestamps) {
			return fmt.Errorf("%w: topic %s: field %q has %d values for %d timestamps",
				ErrConfiguration, t.Key, f, len(t.Values[i]), len(t.Timestamps))
		}
	}
	for i := 1; i < len(t.Timestamps); i++ {
		if t.Timestamps[i] < t.Timestamps[i-1] {
			return fmt.Errorf("%w: topic %s: timestamps not sorted at sample %d",
				ErrConfiguration, t.Key, i)
		}
	}
	return nil
}
