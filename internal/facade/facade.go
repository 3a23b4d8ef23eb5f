/*
Package facade is the control surface a CLI or desktop shell drives the daemon through. It owns
the coarse lifecycle - which port to listen on, whether the aggregate is running - and delegates
the actual work to the supervisor and the SOCKS5 front-end. The operation set is deliberately
small and fixed so any shell (command line today, a GUI tomorrow) programs against the same
seven calls.

The lifecycle and status operations serialize on one mutex; they are rare control actions, never
hot-path work. The log operations go through the log buffer's own lock.
*/
package facade

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/adapter"
	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/frontend"
	"github.com/thookham/chimera/internal/health"
	"github.com/thookham/chimera/internal/logbuffer"
	"github.com/thookham/chimera/internal/reporter"
	"github.com/thookham/chimera/internal/router"
	"github.com/thookham/chimera/internal/settings"
	"github.com/thookham/chimera/internal/supervisor"
)

var (
	errRunning    = errors.New("facade: daemon already running")
	errNotRunning = errors.New("facade: daemon not running")
)

// ProxyConfig is the answer to GetProxyConfig.
type ProxyConfig struct {
	Port    uint16 `json:"port"`
	Address string `json:"address"`
	Running bool   `json:"running"`
}

// AppState holds the daemon's control state. Construct with New; share one instance between the
// CLI loop and any GUI bindings.
type AppState struct {
	mu sync.Mutex

	cfg  *settings.Settings
	log  *logrus.Logger
	logs *logbuffer.Buffer

	port    uint16
	running bool

	healthState *health.State
	sup         *supervisor.Supervisor
	front       *frontend.Server
}

// New constructs an AppState over the loaded configuration. The log buffer is registered as a
// logrus hook by the caller at bootstrap; the facade only reads and clears it.
func New(cfg *settings.Settings, log *logrus.Logger, logs *logbuffer.Buffer) *AppState {
	return &AppState{cfg: cfg, log: log, logs: logs, port: cfg.Server.Port}
}

// SetProxyPort changes the front-end listen port. Rejected while the daemon runs - the listener
// is already bound.
func (t *AppState) SetProxyPort(p uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return errRunning
	}
	t.port = p

	return nil
}

// GetProxyConfig reports the current front-end settings.
func (t *AppState) GetProxyConfig() ProxyConfig {
	t.mu.Lock()
	defer t.mu.Unlock()

	return ProxyConfig{
		Port:    t.port,
		Address: net.JoinHostPort("127.0.0.1", strconv.Itoa(int(t.port))),
		Running: t.running,
	}
}

// StartDaemon constructs the adapter set from the current configuration plus the selected tags
// and brings the aggregate up. Unknown tags are warned about and ignored; an empty valid
// selection still starts the front-end (every route will simply fail upstream).
func (t *AppState) StartDaemon(selected []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return errRunning
	}

	var enabled []backend.Backend
	seen := make(map[backend.Backend]bool)
	for _, tag := range selected {
		b, ok := backend.Parse(tag)
		if !ok {
			t.log.Warnf("unknown back-end %q ignored", tag)
			continue
		}
		if !seen[b] {
			seen[b] = true
			enabled = append(enabled, b)
		}
	}

	t.healthState = health.New(t.log)
	adapters := adapter.BuildAll(t.cfg, t.log)
	t.sup = supervisor.New(t.cfg.ChainMode, adapters, t.healthState, t.log)

	table := router.New(t.routerOptions()...)
	endpoints := func(b backend.Backend) string {
		a, ok := adapters[b]
		if !ok {
			return ""
		}
		return a.ProxyEndpoint()
	}

	listen := net.JoinHostPort(t.cfg.Server.Host, strconv.Itoa(int(t.port)))
	t.front = frontend.New(listen, table, endpoints, t.log)

	if err := t.sup.Start(enabled); err != nil {
		return err
	}
	if err := t.front.Start(); err != nil {
		t.sup.Stop() // Listener failure takes the half-started aggregate down again
		return fmt.Errorf("facade: front-end: %w", err)
	}
	t.running = true
	t.log.Infof("daemon started with %d back-end(s)", len(enabled))

	return nil
}

// StopDaemon aborts the SOCKS5 listener and takes every adapter down. In-flight sessions drain
// on their own.
func (t *AppState) StopDaemon() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return errNotRunning
	}

	t.front.Stop()
	t.sup.Stop()
	t.running = false
	t.log.Info("daemon stopped")

	return nil
}

// GetStatus reports daemon/proxy liveness plus the health entry for each of the ten back-ends.
// Everything reads false when stopped.
func (t *AppState) GetStatus() map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := map[string]bool{
		"daemon": t.running,
		"proxy":  t.running && t.front.Running(),
	}
	for _, b := range backend.All() {
		healthy := false
		if t.running {
			healthy = t.healthState.Get(b)
		}
		status[b.String()] = healthy
	}

	return status
}

// GetLogs returns the retained log entries, oldest first.
func (t *AppState) GetLogs() []logbuffer.Entry {
	return t.logs.Snapshot()
}

// ClearLogs empties the log buffer.
func (t *AppState) ClearLogs() {
	t.logs.Clear()
}

// Reporters returns the periodic-status reporters of the running aggregate - empty when the
// daemon is stopped.
func (t *AppState) Reporters() []reporter.Reporter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	return []reporter.Reporter{t.front, t.healthState}
}

// routerOptions wires the optional health-fallback hook when the configuration asks for it.
func (t *AppState) routerOptions() []router.Option {
	fallbacks := make(map[backend.Backend]backend.Backend)
	if t.cfg.Tor.FallbackProtocol != "" {
		if fb, ok := backend.Parse(t.cfg.Tor.FallbackProtocol); ok {
			fallbacks[backend.Tor] = fb
		}
	}
	if len(fallbacks) == 0 {
		return nil
	}

	return []router.Option{router.WithFallback(t.healthState, fallbacks)}
}
