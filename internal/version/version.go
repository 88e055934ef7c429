package version

import "fmt"

// Build metadata, overridden via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String renders the full build identification line.
func String() string {
	return fmt.Sprintf("foliowatch %s (commit %s, built %s)", Version, Commit, BuildDate)
}
