package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFillFromBuildInfo(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = oldV, oldC, oldD })

	Version, Commit, BuildDate = "dev", "none", "unknown"
	fillFromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-03-02T18:42:00Z"},
		},
	})

	if Version != "v1.2.3" || Commit != "0123456" || BuildDate != "2026-03-02T18:42:00Z" {
		t.Errorf("got %s %s %s", Version, Commit, BuildDate)
	}
	if s := String(); !strings.HasPrefix(s, "v1.2.3 (commit 0123456") {
		t.Errorf("String() = %q", s)
	}
}

func TestFillKeepsLinkerValues(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = oldV, oldC, oldD })

	Version, Commit, BuildDate = "v2.0.0", "feedbee", "2026-01-01"
	fillFromBuildInfo(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffff"}},
	})
	if Version != "v2.0.0" || Commit != "feedbee" || BuildDate != "2026-01-01" {
		t.Errorf("linker values overwritten: %s %s %s", Version, Commit, BuildDate)
	}
}
