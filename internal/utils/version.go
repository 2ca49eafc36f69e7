package utils

import (
	"fmt"
	"runtime"
)

var (
	// Version information - set via ldflags during build
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// GetBuildInfo returns the version variables and toolchain of this build.
func GetBuildInfo() BuildInfo {
	return BuildInfo{Version: Version, Commit: Commit, Date: Date, GoVersion: runtime.Version()}
}

// GetVersionString returns a formatted version string
func GetVersionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
