// Package version reports build information for doctext.
package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags:
//
//	-X github.com/omarfoud/pdf-text-searcher/pkg/version.Version=v0.3.0
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Name is the program name used in banners and the MCP handshake.
const Name = "doctext"

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a one-line version banner.
func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s)",
		Name, Version, Commit, Date, runtime.Version())
}

// Short returns just the version string.
func Short() string {
	return Version
}

// GetInfo returns structured version information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
