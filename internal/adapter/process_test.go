package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Spawn a real short-lived child and watch its output land in the log and its exit flip the
// liveness flag.
func TestProcessSpawnCaptureAndReap(t *testing.T) {
	logger, hook := testLogger()

	var p process
	err := p.spawn("fake", "/bin/sh", []string{"-c", "echo out-line; echo err-line 1>&2"}, logger)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !p.alive() }, 3*time.Second, 10*time.Millisecond,
		"child never reaped")
	assert.True(t, hookContains(hook, "out-line"))
	assert.True(t, hookContains(hook, "err-line"))
}

func TestProcessSpawnStopKills(t *testing.T) {
	logger, _ := testLogger()

	var p process
	require.NoError(t, p.spawn("fake", "/bin/sh", []string{"-c", "sleep 30"}, logger))
	require.True(t, p.alive())

	require.NoError(t, p.stop())
	require.Eventually(t, func() bool { return !p.alive() }, 3*time.Second, 10*time.Millisecond,
		"kill did not reap the child")

	// Idempotent once down
	assert.NoError(t, p.stop())
}

func TestProcessSpawnBadBinary(t *testing.T) {
	logger, _ := testLogger()

	var p process
	err := p.spawn("fake", "/nonexistent/daemon", nil, logger)
	assert.Error(t, err)
	assert.False(t, p.alive())
}
