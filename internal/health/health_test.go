package health

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thookham/chimera/internal/backend"
)

func newState() (*State, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	return New(logger), hook
}

func TestInitSeedsFalse(t *testing.T) {
	s, _ := newState()
	s.Init([]backend.Backend{backend.Tor, backend.I2P})

	require.Equal(t, 2, s.Len())
	assert.False(t, s.Get(backend.Tor))
	assert.False(t, s.Get(backend.I2P))
	assert.False(t, s.Get(backend.Nym)) // absent reads as false
}

func TestTransitionLogging(t *testing.T) {
	s, hook := newState()
	s.Init([]backend.Backend{backend.Tor})

	s.Set(backend.Tor, true) // false -> true: debug
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.True(t, strings.Contains(hook.LastEntry().Message, "tor"))

	hook.Reset()
	s.Set(backend.Tor, true) // no transition: silent
	assert.Nil(t, hook.LastEntry())

	s.Set(backend.Tor, false) // true -> false: warn
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestSnapshotIsCopy(t *testing.T) {
	s, _ := newState()
	s.Init([]backend.Backend{backend.Tor})
	snap := s.Snapshot()
	snap[backend.Tor] = true
	assert.False(t, s.Get(backend.Tor))
}

func TestClear(t *testing.T) {
	s, _ := newState()
	s.Init(backend.All())
	s.Set(backend.IPFS, true)
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Get(backend.IPFS))
}

func TestReport(t *testing.T) {
	s, _ := newState()
	s.Init([]backend.Backend{backend.Tor, backend.I2P})
	s.Set(backend.I2P, true)

	assert.Equal(t, "Health", s.Name())
	assert.Equal(t, "i2p=ok tor=down", s.Report(false))
}
