// Package version carries build metadata injected through -ldflags.
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

// String formats the build metadata for the CLI.
func String() string {
	return fmt.Sprintf("darktrack %s (%s, built %s)", Version, GitSHA, BuildTime)
}
