package facade

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/constants"
	"github.com/thookham/chimera/internal/logbuffer"
	"github.com/thookham/chimera/internal/settings"
)

func newApp(t *testing.T) (*AppState, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	buf := logbuffer.New(constants.Get().LogRingSize)
	logger.AddHook(buf)

	cfg := settings.Defaults()
	cfg.Tor.BinaryPath = "/nonexistent/tor" // Never spawn real daemons from tests
	cfg.I2P.BinaryPath = "/nonexistent/i2pd"

	app := New(cfg, logger, buf)
	require.NoError(t, app.SetProxyPort(0)) // Ephemeral port for the front-end
	t.Cleanup(func() { app.StopDaemon() })

	return app, hook
}

func TestProxyConfigDefaults(t *testing.T) {
	logger, _ := test.NewNullLogger()
	app := New(settings.Defaults(), logger, logbuffer.New(10))

	pc := app.GetProxyConfig()
	assert.Equal(t, uint16(9050), pc.Port)
	assert.Equal(t, "127.0.0.1:9050", pc.Address)
	assert.False(t, pc.Running)
}

func TestStartStopLifecycle(t *testing.T) {
	app, _ := newApp(t)

	require.NoError(t, app.StartDaemon([]string{"tor", "i2p"}))
	assert.True(t, app.GetProxyConfig().Running)

	// Second start and port change are rejected while running
	assert.Error(t, app.StartDaemon([]string{"tor"}))
	assert.Error(t, app.SetProxyPort(1085))

	require.NoError(t, app.StopDaemon())
	assert.False(t, app.GetProxyConfig().Running)

	// Second stop is rejected, port change allowed again
	assert.Error(t, app.StopDaemon())
	assert.NoError(t, app.SetProxyPort(0))

	// The cycle may repeat
	require.NoError(t, app.StartDaemon([]string{"tor"}))
	require.NoError(t, app.StopDaemon())
}

func TestUnknownTagsWarnedAndIgnored(t *testing.T) {
	app, hook := newApp(t)

	require.NoError(t, app.StartDaemon([]string{"tor", "hyperboria", "i2p"}))

	found := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == `unknown back-end "hyperboria" ignored` {
			found = true
		}
	}
	assert.True(t, found, "expected a warning for the unknown tag")
}

func TestStatusShape(t *testing.T) {
	app, _ := newApp(t)

	// Stopped: every key present and false
	status := app.GetStatus()
	require.Len(t, status, 12) // daemon + proxy + ten tags
	for k, v := range status {
		assert.False(t, v, k)
	}

	require.NoError(t, app.StartDaemon([]string{"tor"}))
	status = app.GetStatus()
	assert.True(t, status["daemon"])
	assert.True(t, status["proxy"])
	for _, b := range backend.All() {
		assert.Contains(t, status, b.String())
	}
	// No probe has succeeded (no real back-ends run here)
	assert.False(t, status["tor"])

	require.NoError(t, app.StopDaemon())
	status = app.GetStatus()
	assert.False(t, status["daemon"])
	assert.False(t, status["proxy"])
	assert.False(t, status["tor"])
}

func TestLogOps(t *testing.T) {
	app, _ := newApp(t)

	require.NoError(t, app.StartDaemon([]string{"tor"}))
	require.NoError(t, app.StopDaemon())

	require.Eventually(t, func() bool { return len(app.GetLogs()) > 0 },
		time.Second, 10*time.Millisecond)

	entries := app.GetLogs()
	for _, e := range entries {
		assert.Len(t, e.Timestamp, 8) // HH:MM:SS
		assert.NotEmpty(t, e.Level)
	}

	app.ClearLogs()
	assert.Empty(t, app.GetLogs())
}
