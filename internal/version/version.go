// Package version carries build metadata for the matrix binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/matrix/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/matrix/internal/version.Commit=abc123
//	  -X github.com/soyeahso/matrix/internal/version.Date=2026-01-01"
//
// Values left unset fall back to what the toolchain stamped into the
// binary: the module version for 'go install', the VCS revision and
// commit time for builds from a checkout.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

func init() {
	if bi, ok := readBuildInfo(); ok {
		Version, Commit, Date = stamp(bi, Version, Commit, Date)
	}
}

// stamp fills unset build variables from bi.
func stamp(bi *debug.BuildInfo, version, commit, date string) (string, string, string) {
	if version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	dirty := false
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "unknown" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "unknown" {
				date = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && commit != "unknown" {
		commit += "+dirty"
	}
	return version, commit, date
}

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("matrix %s (commit: %s, built: %s, %s/%s)",
		Version, short(Commit), Date, runtime.GOOS, runtime.GOARCH)
}

// UserAgent is sent on outbound HTTP requests to third-party APIs.
func UserAgent() string {
	return "matrix/" + Version
}

// GoVersion reports the toolchain the binary was built with.
func GoVersion() string {
	if bi, ok := readBuildInfo(); ok && bi.GoVersion != "" {
		return bi.GoVersion
	}
	return runtime.Version()
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
