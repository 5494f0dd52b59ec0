// Package version holds build information for grindhub, set via ldflags.
package version

import "fmt"

// Build information. Example:
// go build -ldflags "-X grindhub/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the build information on one line.
func String() string {
	return fmt.Sprintf("grindhub %s (commit %s, built %s)", Version, Commit, Date)
}
