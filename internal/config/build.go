package config

import "runtime/debug"

// Set by the release build:
//
//	go build -ldflags "-X quill/internal/config.version=1.2.3 \
//	    -X quill/internal/config.commit=$(git rev-parse --short HEAD)" ./cmd/api
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo reports the linker-injected build metadata. When the commit
// was not injected, the VCS stamp the go tool embeds is used instead.
func NewBuildInfo() BuildInfo {
	info := BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
	if info.Commit != "none" {
		return info
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 12 {
				s.Value = s.Value[:12]
			}
			info.Commit = s.Value
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		}
	}
	return info
}
