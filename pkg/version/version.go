// Package version holds build information for the hakim binary.
package version

import "fmt"

// Set at build time, e.g. go build -ldflags "-X hakim/pkg/version.Version=v0.3.0".
//
//nolint:gochecknoglobals // must be package-level vars for ldflags injection.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the multi-line banner printed by -version.
func String() string {
	return fmt.Sprintf("hakim %s\n  commit: %s\n  built:  %s\n", Version, Commit, Date)
}
