package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the release of the gcquality binaries
const Version = "1.0.0"

// Result and API schema versions. ResultSchema changes whenever the
// per-experiment JSON or workbook layout changes.
const (
	ResultSchema = "v1"
	APISchema    = "v1"
)

// Set with -ldflags "-X gcquality/pkg/contracts.GitCommit=..." at release
// time. Unset values fall back to the module build info.
var (
	BuildTime = ""
	GitCommit = ""
)

// VersionInfo is served by GET /api/version
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
	ResultSchema string `json:"result_schema"`
	APISchema    string `json:"api_schema"`
}

// GetVersionInfo collects the version of the running binary
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
		ResultSchema: ResultSchema,
		APISchema:    APISchema,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.GitCommit == "":
				info.GitCommit = s.Value
			case s.Key == "vcs.time" && info.BuildTime == "":
				info.BuildTime = s.Value
			}
		}
	}

	for _, f := range []*string{&info.BuildTime, &info.GitCommit} {
		if *f == "" {
			*f = "unknown"
		}
	}
	return info
}

// GetFullVersionString is printed by the CLIs' -version flag
func GetFullVersionString() string {
	info := GetVersionInfo()
	commit := info.GitCommit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("gcquality %s (commit %s, built %s, %s %s, results %s)",
		info.Version, commit, info.BuildTime, info.GoVersion, info.Platform, info.ResultSchema)
}
