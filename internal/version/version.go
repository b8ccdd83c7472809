// Package version exposes build information.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the application version (set at build time).
	Version = "dev"

	// GitCommit is the git commit hash (set at build time).
	GitCommit = "unknown"

	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
)

// Info holds version information.
type Info struct {
	Version   string
	GitCommit string
	GoVersion string
}

// Get returns version information, filling the commit from embedded
// build info when not set at build time.
func Get() Info {
	if GitCommit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					GitCommit = setting.Value
				}
			}
		}
	}
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
	}
}

// String returns a formatted version string.
func String() string {
	info := Get()
	return fmt.Sprintf("sessionhive %s (commit: %s, go: %s)",
		info.Version, info.GitCommit, info.GoVersion)
}
