// Package pipeline runs the global-position analysis over one decoded log.
//
// It is the composition root of the engine: it checks the required topics,
// aligns them (package align), drops rows with unusable coordinates, derives
// reference-relative coordinates (package geo) and labels navigation-state
// runs (package segment). None of those packages import pipeline.
//
// The input topic tables belong to the aligner once Run is called; callers
// should drop their own references so the per-topic data can be collected
// while the later stages run.
package pipeline
