// Package internal holds build metadata shared by the binaries.
package internal

import (
	"runtime/debug"
	"time"
)

// BuildInfo describes the version control state the binary was built from.
type BuildInfo struct {
	// Revision is the VCS revision, "unknown" outside of a VCS build.
	Revision string
	// RevisionTime is the commit time of Revision.
	RevisionTime time.Time
	// Modified is true when the binary was built from a dirty tree.
	Modified bool
}

// Build is filled from the info embedded by the Go toolchain.
var Build = BuildInfo{
	Revision: "unknown",
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Build.Revision = setting.Value
		case "vcs.time":
			if setting.Value == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, setting.Value)
			if err != nil {
				continue
			}
			Build.RevisionTime = t
		case "vcs.modified":
			Build.Modified = setting.Value == "true"
		}
	}
}
