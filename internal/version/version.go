// Package version carries build metadata injected with -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build metadata on one line for `trajectory version`.
func String() string {
	return fmt.Sprintf("trajectory %s (git %s, built %s)", Version, GitSHA, BuildTime)
}
