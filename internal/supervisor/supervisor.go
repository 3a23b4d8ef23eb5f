/*
Package supervisor orchestrates adapter lifecycle: bring the enabled back-ends up in the right
order, keep one probe loop per back-end feeding the health map, and take everything down again
on stop.

Start order is part of the interface. A chain mode sequences its two participants with a fixed
2 second gap - the underlying network must be listening before the dependent one is told to dial
through it - and wires the dependent adapter's upstream setting to the underlying adapter's
endpoint. The remaining back-ends start in one deterministic sequence so log output and health
transitions are comparable across runs.

A failed adapter start is logged and skipped; the aggregate keeps going with whatever came up.
The only caller-visible failure mode of Start is being called twice without an intervening Stop.
*/
package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/adapter"
	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/constants"
	"github.com/thookham/chimera/internal/health"
	"github.com/thookham/chimera/internal/metrics"
	"github.com/thookham/chimera/internal/settings"
)

var errAlreadyStarted = errors.New("supervisor: already started")

// torChainable is implemented by the Tor adapter: its upstream proxy is decided at start time by
// the chain mode, not by static configuration.
type torChainable interface {
	SetUpstreamProxy(addr string)
}

// nymChainable is the Nym counterpart for the nym_over_tor chain.
type nymChainable interface {
	SetUpstreamProvider(provider string)
}

// Supervisor owns the adapter set and the probe loops. Construct with New; one per run.
type Supervisor struct {
	chainMode settings.ChainMode
	adapters  map[backend.Backend]adapter.Adapter
	health    *health.State
	log       *logrus.Logger

	probeInterval time.Duration // Fixed cadence; a field only so tests can compress time
	chainDelay    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Supervisor over the given adapter set.
func New(chainMode settings.ChainMode, adapters map[backend.Backend]adapter.Adapter,
	hs *health.State, log *logrus.Logger) *Supervisor {

	consts := constants.Get()

	return &Supervisor{
		chainMode:     chainMode,
		adapters:      adapters,
		health:        hs,
		log:           log,
		probeInterval: consts.ProbeInterval,
		chainDelay:    consts.ChainStartDelay,
	}
}

// Start brings up the enabled back-ends and launches their probe loops. Individual adapter
// failures are logged and skipped.
func (t *Supervisor) Start(enabled []backend.Backend) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return errAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.mu.Unlock()

	on := make(map[backend.Backend]bool, len(enabled))
	for _, b := range enabled {
		on[b] = true
	}

	t.health.Init(enabled)

	// Phase 1: the chain participants, in chain order

	switch t.chainMode {
	case settings.ChainTorOverNym:
		if on[backend.Nym] {
			t.startOne(backend.Nym)
			time.Sleep(t.chainDelay)
			if tor, ok := t.adapters[backend.Tor].(torChainable); ok {
				tor.SetUpstreamProxy(t.adapters[backend.Nym].ProxyEndpoint())
			}
		}
		if on[backend.Tor] {
			t.startOne(backend.Tor)
		}

	case settings.ChainNymOverTor:
		if on[backend.Tor] {
			t.startOne(backend.Tor)
			time.Sleep(t.chainDelay)
			if nym, ok := t.adapters[backend.Nym].(nymChainable); ok {
				nym.SetUpstreamProvider(t.adapters[backend.Tor].ProxyEndpoint())
			}
		}
		if on[backend.Nym] {
			t.startOne(backend.Nym)
		}

	default: // No chain: Tor then Nym, no delay
		if on[backend.Tor] {
			t.startOne(backend.Tor)
		}
		if on[backend.Nym] {
			t.startOne(backend.Nym)
		}
	}

	// Phase 2: everything else, fixed order

	for _, b := range []backend.Backend{
		backend.I2P, backend.Lokinet, backend.IPFS, backend.ZeroNet,
		backend.Freenet, backend.RetroShare, backend.GNUnet, backend.Tribler,
	} {
		if on[b] {
			t.startOne(b)
		}
	}

	// Phase 3: one probe loop per enabled back-end

	for _, b := range enabled {
		a, ok := t.adapters[b]
		if !ok {
			continue
		}
		t.wg.Add(1)
		go t.probeLoop(ctx, b, a)
	}

	return nil
}

// Stop takes every adapter down, cancels the probe loops and clears the health map. Idempotent.
func (t *Supervisor) Stop() error {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		t.wg.Wait()
	}

	for b, a := range t.adapters {
		if err := a.Stop(); err != nil {
			t.log.Errorf("stopping %s: %v", b, err)
		}
	}
	t.health.Clear()

	return nil
}

func (t *Supervisor) startOne(b backend.Backend) {
	a, ok := t.adapters[b]
	if !ok {
		return
	}
	if err := a.Start(); err != nil {
		t.log.Errorf("starting %s: %v", b, err)
	}
}

// probeLoop publishes the adapter's health observation every tick until cancelled. The first
// observation happens one full interval after start - adapters that came up Running are already
// seeded false in the map and flip on the first tick.
func (t *Supervisor) probeLoop(ctx context.Context, b backend.Backend, a adapter.Adapter) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			healthy := a.Healthy()
			t.health.Set(b, healthy)
			metrics.SetHealth(b, healthy)
		}
	}
}
