package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func setBuild(t *testing.T, version, commit, date string) {
	t.Helper()
	v, c, d := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = v, c, d })
	Version, Commit, Date = version, commit, date
}

func TestInfo(t *testing.T) {
	setBuild(t, "1.2.3", "abc1234567890", "2026-01-15")

	info := Info()
	assert.True(t, strings.HasPrefix(info, "matrix 1.2.3 "))
	assert.Contains(t, info, "commit: abc1234,")
	assert.Contains(t, info, "built: 2026-01-15")
	assert.Contains(t, info, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestStamp(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-09-30T10:00:00Z"},
			{Key: "vcs.modified", Value: "false"},
		},
	}

	tests := []struct {
		name                string
		version, commit, dt string
		want                [3]string
	}{
		{"unset values filled", "dev", "unknown", "unknown",
			[3]string{"v0.3.1", "0123456789abcdef", "2026-09-30T10:00:00Z"}},
		{"ldflags win", "1.0.0", "feedbee", "2026-01-01",
			[3]string{"1.0.0", "feedbee", "2026-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c, d := stamp(bi, tt.version, tt.commit, tt.dt)
			assert.Equal(t, tt.want, [3]string{v, c, d})
		})
	}
}

func TestStampDevelAndDirty(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "cafe"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	v, c, d := stamp(bi, "dev", "unknown", "unknown")
	assert.Equal(t, "dev", v)
	assert.Equal(t, "cafe+dirty", c)
	assert.Equal(t, "unknown", d)
}

func TestShort(t *testing.T) {
	for in, want := range map[string]string{
		"abcdefghij": "abcdefg",
		"abc1234":    "abc1234",
		"abc":        "abc",
		"":           "",
	} {
		assert.Equal(t, want, short(in), in)
	}
}

func TestUserAgent(t *testing.T) {
	setBuild(t, "0.4.0", "x", "y")
	assert.Equal(t, "matrix/0.4.0", UserAgent())
}

func TestGoVersion(t *testing.T) {
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })

	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }
	assert.Equal(t, runtime.Version(), GoVersion())

	readBuildInfo = func() (*debug.BuildInfo, bool) { return &debug.BuildInfo{GoVersion: "go1.25.7"}, true }
	assert.Equal(t, "go1.25.7", GoVersion())
}
