// Package version reports the build version stamped in via ldflags or read from VCS info
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	tag       = "dev" // set via ldflags
	commit    = "123abc"
	buildTime = "now"
)

const template = "%s (%s) built at %s\nhttps://github.com/noot-app/mealbasket-mcp-server/releases/tag/%s"

// buildInfoReader is swapped out in tests
var buildInfoReader = debug.ReadBuildInfo

// Tag returns the release tag, "dev" for local builds
func Tag() string {
	return tag
}

// String returns the tag, commit and build time. VCS settings fill in commit and
// time when ldflags left the placeholders.
func String() string {
	currentCommit := commit
	currentDate := buildTime

	if info, ok := buildInfoReader(); ok && info != nil {
		for _, setting := range info.Settings {
			switch {
			case setting.Key == "vcs.revision" && commit == "123abc":
				currentCommit = setting.Value
			case setting.Key == "vcs.time" && buildTime == "now":
				currentDate = setting.Value
			}
		}
	}

	return fmt.Sprintf(template, tag, currentCommit, currentDate, tag)
}
