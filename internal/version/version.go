// Package version holds build metadata injected via ldflags.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent identifies this build in outbound HTTP calls.
func UserAgent() string {
	return fmt.Sprintf("fedsearch/%s (%s)", Version, Commit)
}
