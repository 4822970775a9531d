// Package telemetry owns the data model of the alignment engine.
//
// A TopicTable holds one decoded topic instance: its field names, its
// timestamps in microseconds and one value slice per field. A Table is the
// unified, time-aligned result built by package align. Every Table column has
// an explicit validity slice; a cell with no observation is invalid, never a
// NaN or a zero.
//
// Column names are namespaced per topic instance (see Namespace) so that
// fields from different topics never collide once merged.
package telemetry
