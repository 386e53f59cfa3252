package version

import "fmt"

var (
	// Version is set by the build system (ldflags).
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the build identity for `rtspscout version`.
func String() string {
	return fmt.Sprintf("rtspscout %s (commit: %s, built: %s)", Version, Commit, Date)
}
