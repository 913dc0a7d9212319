package mediaprobe

import "runtime"

// Version is the semantic version of the mediaprobe library.
const Version = "0.3.0"

// VersionInfo contains detailed version information.
type VersionInfo struct {
	Version string `json:"version"`
	// GitCommit is the git commit hash (set via ldflags at build time)
	GitCommit string `json:"git_commit"`
	// BuildTime is the build timestamp (set via ldflags at build time)
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// GetVersionInfo returns detailed version information.
//
// GitCommit and BuildTime are populated at build time via -ldflags and show
// as "unknown" otherwise:
//
//	go build -ldflags="-X github.com/simonhull/mediaprobe.gitCommit=$(git rev-parse HEAD) \
//	  -X github.com/simonhull/mediaprobe.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/mediaprobe
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GitCommit: gitCommit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

// UserAgent identifies mediaprobe to remote services.
func UserAgent() string {
	return "mediaprobe/" + Version + " ( https://github.com/simonhull/mediaprobe )"
}

// Variables populated at build time via -ldflags.
var (
	gitCommit = "unknown"
	buildTime = "unknown"
)
