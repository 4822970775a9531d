package telemetry

import "strings"

// Prefix is the canonical column prefix of a topic instance:
// name "_" instance "__".
func Prefix(key TopicKey) string {
	return key.String() + "__"
}

// NamespacedField returns the merged-table column name of field. A field that
// already carries the key's prefix is returned unchanged, which makes
// namespacing idempotent.
func NamespacedField(key TopicKey, field string) string {
	if field == TimestampColumn {
		return field
	}
	p := Prefix(key)
	if strings.HasPrefix(field, p) {
		return field
	}
	return p + field
}

// NamespacedSchema maps a field list to its namespaced form without touching
// any table.
func NamespacedSchema(key TopicKey, fields []string) []string {
	if fields == nil {
		return nil
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = NamespacedField(key, f)
	}
	return out
}

// Namespace rewrites the field names of every table in place so that no two
// topics' columns collide once merged. Timestamps and values are untouched.
// Tables are keyed by the map key, which is also written back to Key.
func Namespace(tables map[TopicKey]*TopicTable) map[TopicKey]*TopicTable {
	for key, t := range tables {
		if t == nil {
			continue
		}
		t.Key = key
		t.Fields = NamespacedSchema(key, t.Fields)
	}
	return tables
}
