/*
Package adapter presents a uniform capability surface over each supported back-end. An adapter
knows how to bring its network up (spawn an external daemon, or probe one that is already
running), how to take it down, whether it currently looks alive, and which local endpoint the
router should hand to the front-end.

Two families:

  - spawn-and-watch: Tor, I2P, Lokinet and Nym are launched as child processes with their
    documented argument vectors. Stdout and stderr are captured line-wise into the log. Health is
    "the child has not exited".

  - probe-only: IPFS, ZeroNet, Freenet, RetroShare, Tribler and GNUnet are daemons somebody else
    runs. Start performs a single connectivity probe against the documented endpoint and records
    the outcome; health is the most recently seen connectivity flag.

Failure inside Start is never fatal to the aggregate: a missing binary or unreachable endpoint is
a warning plus a degraded entry in the health map, and the system carries on with whichever
routes remain usable. Healthy() never touches the network - it is called on every probe tick and
must stay cheap.
*/
package adapter

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// State is the lifecycle position of one adapter.
type State int

const (
	Idle State = iota
	Starting
	Running
	Degraded
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Degraded:
		return "degraded"
	case Stopped:
		return "stopped"
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Adapter is the uniform surface the supervisor and front-end work against.
type Adapter interface {
	// Backend returns the identity this adapter serves.
	Backend() backend.Backend

	// Start brings the back-end up. It is idempotent when already running and a no-op success
	// when the back-end is disabled or absent - degraded capability is normal operation.
	Start() error

	// Stop takes the back-end down and releases any child process or session. Idempotent.
	Stop() error

	// Healthy is a cheap, side-effect-free liveness observation. Never blocks on network I/O.
	Healthy() bool

	// ProxyEndpoint is the address the front-end dials for this back-end: host:port for
	// SOCKS/HTTP proxies, a full URL for API gateways, empty for tunnel-only back-ends.
	ProxyEndpoint() string

	// State reports the lifecycle position.
	State() State
}

// common carries the fields every adapter variant shares. The mutex guards state transitions
// only and is never held across blocking I/O.
type common struct {
	mu      sync.Mutex
	backend backend.Backend
	enabled bool
	state   State
	log     *logrus.Logger
}

func (t *common) Backend() backend.Backend {
	return t.backend
}

func (t *common) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

func (t *common) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// BuildAll constructs the ten adapters from cfg. There is exactly one adapter instance per
// back-end for the life of a run; the supervisor consults the enabled set to decide which of
// them to start.
func BuildAll(cfg *settings.Settings, log *logrus.Logger) map[backend.Backend]Adapter {
	return map[backend.Backend]Adapter{
		backend.Tor:        NewTor(cfg.Tor, log),
		backend.I2P:        NewI2P(cfg.I2P, log),
		backend.Nym:        NewNym(cfg.Nym, log),
		backend.Lokinet:    NewLokinet(cfg.Lokinet, log),
		backend.IPFS:       NewIPFS(cfg.IPFS, log),
		backend.ZeroNet:    NewZeroNet(cfg.ZeroNet, log),
		backend.Freenet:    NewFreenet(cfg.Freenet, log),
		backend.GNUnet:     NewGNUnet(cfg.GNUnet, log),
		backend.RetroShare: NewRetroShare(cfg.RetroShare, log),
		backend.Tribler:    NewTribler(cfg.Tribler, log),
	}
}
