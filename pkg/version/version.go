// Package version reports the classcache build.
//
// Release builds inject the values with ldflags:
//
//	-X github.com/Aman-CERP/classcache/pkg/version.Version=$(VERSION)
//	-X github.com/Aman-CERP/classcache/pkg/version.Commit=$(COMMIT)
//	-X github.com/Aman-CERP/classcache/pkg/version.Date=$(DATE)
//
// Builds made with `go install` fall back to the module version and VCS
// stamps recorded by the toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

// ModulePath is reported when the binary carries no module build info.
const ModulePath = "github.com/Aman-CERP/classcache"

var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// BuildInfo is the --json form of the version command.
type BuildInfo struct {
	Version   string `json:"version"`
	Module    string `json:"module"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns the build description, filling fields that ldflags left
// unset from the embedded module build info.
func GetInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Module:    ModulePath,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(&info, bi)
	}
	return info
}

func fillFromBuildInfo(info *BuildInfo, bi *debug.BuildInfo) {
	if bi.Main.Path != "" {
		info.Module = bi.Main.Path
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unknown {
				info.Commit = s.Value
				if len(info.Commit) > 12 {
					info.Commit = info.Commit[:12]
				}
			}
		case "vcs.time":
			if info.Date == unknown {
				info.Date = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" && info.Commit != unknown {
				info.Commit += "-dirty"
			}
		}
	}
}

// String is the one-line form printed by `classcache version`.
func String() string {
	info := GetInfo()
	return fmt.Sprintf("classcache %s (commit: %s, built: %s, %s %s/%s)",
		info.Version, info.Commit, info.Date, info.GoVersion, info.OS, info.Arch)
}

// Dependency is one module linked into the binary.
type Dependency struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

// Dependencies lists the modules linked into the binary, following
// replace directives. It is empty when the binary has no build info.
func Dependencies() []Dependency {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return dependenciesOf(bi)
}

func dependenciesOf(bi *debug.BuildInfo) []Dependency {
	deps := make([]Dependency, 0, len(bi.Deps))
	for _, m := range bi.Deps {
		if m.Replace != nil {
			m = m.Replace
		}
		deps = append(deps, Dependency{Path: m.Path, Version: m.Version})
	}
	return deps
}

// Short returns the version alone.
func Short() string {
	return GetInfo().Version
}
