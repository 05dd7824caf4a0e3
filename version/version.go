package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
)

var (
	// Set with -ldflags -X at release time.
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Module is the import path reported when build info is unavailable.
const Module = "github.com/dendrascience/wfs"

// Info contains version information
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Module    string `json:"module"`
	GoVersion string `json:"go_version"`
}

// buildSetting returns a VCS setting stamped by the go tool, or "".
func buildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// GetVersion returns the version string, preferring the linker-set value.
func GetVersion() string {
	if Version != "dev" && Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "development"
}

// GetInfo returns complete version information
func GetInfo() Info {
	info := Info{
		Version:   GetVersion(),
		Commit:    Commit,
		Date:      Date,
		Module:    Module,
		GoVersion: runtime.Version(),
	}
	if info.Commit == "unknown" || info.Commit == "" {
		if rev := buildSetting("vcs.revision"); rev != "" {
			info.Commit = rev
			if buildSetting("vcs.modified") == "true" {
				info.Commit += "-dirty"
			}
		}
	}
	if info.Date == "unknown" || info.Date == "" {
		if t := buildSetting("vcs.time"); t != "" {
			info.Date = t
		}
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Path != "" {
		info.Module = bi.Main.Path
	}
	return info
}

// GetFullVersion returns a formatted version string with commit and date
func GetFullVersion() string {
	return GetInfo().String()
}

func (i Info) String() string {
	if i.Commit == "unknown" || len(i.Commit) <= 7 {
		return i.Version
	}
	if i.Date != "unknown" {
		return fmt.Sprintf("%s (%s, built %s)", i.Version, i.Commit[:7], i.Date)
	}
	return fmt.Sprintf("%s (%s)", i.Version, i.Commit[:7])
}

// PrintVersion writes version information for appName to w.
func PrintVersion(w io.Writer, appName string) {
	info := GetInfo()
	fmt.Fprintf(w, "%s version %s\n", appName, info)
	fmt.Fprintf(w, "Module: %s\n", info.Module)
	fmt.Fprintf(w, "Commit: %s\n", info.Commit)
	fmt.Fprintf(w, "Build Date: %s\n", info.Date)
	fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
}
