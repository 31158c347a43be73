// Package version carries build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is the release tag, set with -X at build time.
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the build metadata for -version output.
func String() string {
	return fmt.Sprintf("tunebox %s (commit %s, built %s)", Version, Commit, Date)
}
