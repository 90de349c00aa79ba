package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// setBuildInfo overrides the ldflags variables for the duration of a test.
func setBuildInfo(t *testing.T, v, c, b string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	})
	Version, Commit, BuildTime = v, c, b
}

func TestString(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		setBuildInfo(t, "dev", "unknown", "unknown")
		assert.Equal(t, "dev (unknown) built unknown", String())
	})

	t.Run("custom values", func(t *testing.T) {
		setBuildInfo(t, "1.2.3", "abc1234", "2024-01-15T10:00:00Z")
		assert.Equal(t, "1.2.3 (abc1234) built 2024-01-15T10:00:00Z", String())
	})
}

func TestGet(t *testing.T) {
	setBuildInfo(t, "0.4.0", "deadbee", "2025-03-01T00:00:00Z")

	assert.Equal(t, Info{
		Version:   "0.4.0",
		Commit:    "deadbee",
		BuildTime: "2025-03-01T00:00:00Z",
	}, Get())
}

func TestDefaultValues(t *testing.T) {
	// ldflags may overwrite these in release builds, but never with empties.
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, Commit)
	assert.NotEmpty(t, BuildTime)
}
