package supervisor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thookham/chimera/internal/adapter"
	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/health"
	"github.com/thookham/chimera/internal/settings"
)

// fakeAdapter records call ordering and timing for start-sequence assertions.
type fakeAdapter struct {
	mu        sync.Mutex
	b         backend.Backend
	endpoint  string
	healthy   bool
	startErr  error
	startedAt time.Time
	started   bool
	stopped   bool

	upstreamProxy    string // Tor chain wiring observed
	upstreamProvider string // Nym chain wiring observed
}

func (t *fakeAdapter) Backend() backend.Backend { return t.b }

func (t *fakeAdapter) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
	t.startedAt = time.Now()

	return t.startErr
}

func (t *fakeAdapter) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true

	return nil
}

func (t *fakeAdapter) Healthy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.healthy
}

func (t *fakeAdapter) setHealthy(v bool) {
	t.mu.Lock()
	t.healthy = v
	t.mu.Unlock()
}

func (t *fakeAdapter) ProxyEndpoint() string { return t.endpoint }

func (t *fakeAdapter) State() adapter.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return adapter.Stopped
	}
	if t.started {
		return adapter.Running
	}

	return adapter.Idle
}

func (t *fakeAdapter) SetUpstreamProxy(addr string)        { t.upstreamProxy = addr }
func (t *fakeAdapter) SetUpstreamProvider(provider string) { t.upstreamProvider = provider }

func newFixture() (map[backend.Backend]adapter.Adapter, map[backend.Backend]*fakeAdapter, *health.State) {
	adapters := make(map[backend.Backend]adapter.Adapter)
	fakes := make(map[backend.Backend]*fakeAdapter)
	for _, b := range backend.All() {
		f := &fakeAdapter{b: b, endpoint: "endpoint-" + b.String()}
		fakes[b] = f
		adapters[b] = f
	}
	logger, _ := test.NewNullLogger()

	return adapters, fakes, health.New(logger)
}

func newSupervisor(mode settings.ChainMode,
	adapters map[backend.Backend]adapter.Adapter, hs *health.State) *Supervisor {

	logger, _ := test.NewNullLogger()
	s := New(mode, adapters, hs, logger)
	s.probeInterval = 10 * time.Millisecond // Compress time for tests

	return s
}

// chain_mode = tor_over_nym: Nym starts strictly before Tor with at least the chain delay in
// between, and Tor is wired to Nym's SOCKS endpoint.
func TestChainTorOverNym(t *testing.T) {
	adapters, fakes, hs := newFixture()
	s := newSupervisor(settings.ChainTorOverNym, adapters, hs)
	defer s.Stop()

	require.NoError(t, s.Start([]backend.Backend{backend.Tor, backend.Nym}))

	nym, tor := fakes[backend.Nym], fakes[backend.Tor]
	require.True(t, nym.started)
	require.True(t, tor.started)
	assert.True(t, nym.startedAt.Before(tor.startedAt), "nym must start before tor")
	assert.GreaterOrEqual(t, tor.startedAt.Sub(nym.startedAt), 2*time.Second)
	assert.Equal(t, nym.endpoint, tor.upstreamProxy)
}

func TestChainNymOverTor(t *testing.T) {
	adapters, fakes, hs := newFixture()
	s := newSupervisor(settings.ChainNymOverTor, adapters, hs)
	defer s.Stop()

	require.NoError(t, s.Start([]backend.Backend{backend.Tor, backend.Nym}))

	nym, tor := fakes[backend.Nym], fakes[backend.Tor]
	assert.True(t, tor.startedAt.Before(nym.startedAt), "tor must start before nym")
	assert.GreaterOrEqual(t, nym.startedAt.Sub(tor.startedAt), 2*time.Second)
	assert.Equal(t, tor.endpoint, nym.upstreamProvider)
}

// Without a chain the two start back to back with no imposed delay, then the rest in the fixed
// sequence.
func TestStartOrderNoChain(t *testing.T) {
	adapters, fakes, hs := newFixture()
	s := newSupervisor(settings.ChainNone, adapters, hs)
	defer s.Stop()

	start := time.Now()
	require.NoError(t, s.Start(backend.All()))
	assert.Less(t, time.Since(start), time.Second, "no-chain start must not sleep")

	var prev time.Time
	for _, b := range backend.All() {
		f := fakes[b]
		require.True(t, f.started, b.String())
		assert.False(t, f.startedAt.Before(prev), "%s started out of order", b)
		prev = f.startedAt
	}
}

// A failing adapter is logged and skipped; the rest still start.
func TestStartContinuesPastFailure(t *testing.T) {
	adapters, fakes, hs := newFixture()
	fakes[backend.Tor].startErr = errors.New("no binary")
	s := newSupervisor(settings.ChainNone, adapters, hs)
	defer s.Stop()

	require.NoError(t, s.Start([]backend.Backend{backend.Tor, backend.I2P}))
	assert.True(t, fakes[backend.I2P].started)
}

func TestStartTwiceRejected(t *testing.T) {
	adapters, _, hs := newFixture()
	s := newSupervisor(settings.ChainNone, adapters, hs)
	defer s.Stop()

	require.NoError(t, s.Start([]backend.Backend{backend.Tor}))
	assert.Error(t, s.Start([]backend.Backend{backend.Tor}))
}

// Probe loops publish adapter health into the shared map.
func TestProbeUpdatesHealth(t *testing.T) {
	adapters, fakes, hs := newFixture()
	s := newSupervisor(settings.ChainNone, adapters, hs)
	defer s.Stop()

	require.NoError(t, s.Start([]backend.Backend{backend.I2P}))
	require.False(t, hs.Get(backend.I2P)) // Seeded false before any probe

	fakes[backend.I2P].setHealthy(true)
	require.Eventually(t, func() bool { return hs.Get(backend.I2P) },
		time.Second, 5*time.Millisecond)

	fakes[backend.I2P].setHealthy(false)
	require.Eventually(t, func() bool { return !hs.Get(backend.I2P) },
		time.Second, 5*time.Millisecond)
}

// Only enabled back-ends get probe entries; disabled ones never appear in the map.
func TestHealthOnlyEnabled(t *testing.T) {
	adapters, _, hs := newFixture()
	s := newSupervisor(settings.ChainNone, adapters, hs)
	defer s.Stop()

	require.NoError(t, s.Start([]backend.Backend{backend.Tor, backend.IPFS}))
	assert.Equal(t, 2, hs.Len())
}

// start then stop leaves the health map empty and every adapter stopped.
func TestStopClearsEverything(t *testing.T) {
	adapters, fakes, hs := newFixture()
	s := newSupervisor(settings.ChainNone, adapters, hs)

	require.NoError(t, s.Start(backend.All()))
	require.NoError(t, s.Stop())

	assert.Equal(t, 0, hs.Len())
	for b, f := range fakes {
		assert.True(t, f.stopped, b.String())
		assert.Equal(t, adapter.Stopped, f.State())
	}

	// Stop again is fine, and a new Start is allowed after Stop
	require.NoError(t, s.Stop())
	require.NoError(t, s.Start([]backend.Backend{backend.Tor}))
	require.NoError(t, s.Stop())
}
