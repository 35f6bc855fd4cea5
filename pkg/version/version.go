// Package version holds build metadata of the ostree binaries.
package version

import "runtime/debug"

const unknown = "unknown"

// Build metadata, overridden at link time:
//
//	go build -ldflags "-X github.com/Sumatoshi-tech/ostree/pkg/version.Version=v1.0.0"
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills metadata that was not set by the linker from the
// module build info embedded by the Go toolchain.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String returns the one-line version banner.
func String() string {
	return "ostree " + Version + " (commit: " + Commit + ", built: " + Date + ")"
}
