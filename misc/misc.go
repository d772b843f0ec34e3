// Package misc keeps small helpers needed across the program.
package misc

import (
	"runtime/debug"
)

const appName = "resumedoc"

// set by the linker during release builds
var (
	version = "development"
	gitHash = ""
)

// GetAppName returns program name to be used in logs and file names.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns git hash of the source tree the program was built from.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
