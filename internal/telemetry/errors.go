package telemetry

import "errors"

// Error kinds. Errors returned by this module wrap one of these with the
// failing column or topic key, so callers use errors.Is and users still see
// which part of the log was missing.
var (
	// ErrConfiguration reports a missing merge target, empty input or an
	// otherwise unusable request.
	ErrConfiguration = errors.New("configuration error")

	// ErrLookup reports a column or topic that is absent when accessed.
	ErrLookup = errors.New("lookup error")

	// ErrRange reports a value outside the domain accepted by a bucket
	// function or projection.
	ErrRange = errors.New("range error")
)
