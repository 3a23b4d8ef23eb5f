package adapter

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// Tor is the spawn-and-watch adapter for the Tor daemon. Under a chain deployment the supervisor
// fills in UpstreamProxy before starting us, which becomes tor's --Socks5Proxy - tor then builds
// its circuits through that upstream rather than dialing guards directly.
type Tor struct {
	common
	cfg     settings.TorSettings
	process process
}

func NewTor(cfg settings.TorSettings, log *logrus.Logger) *Tor {
	return &Tor{common: common{backend: backend.Tor, enabled: cfg.Enabled, log: log}, cfg: cfg}
}

// SetUpstreamProxy points tor at a chained SOCKS5 upstream. Must be called before Start.
func (t *Tor) SetUpstreamProxy(addr string) {
	t.cfg.UpstreamProxy = addr
}

func (t *Tor) Start() error {
	if !t.enabled {
		return nil
	}
	if t.process.alive() {
		return nil
	}
	if !binaryPresent("tor", t.cfg.BinaryPath, t.log) {
		return nil
	}

	dataDir, err := ensureDataDir("tor")
	if err != nil {
		return fmt.Errorf("tor: data directory: %w", err)
	}

	args := []string{
		"--SocksPort", strconv.Itoa(int(t.cfg.SocksPort)),
		"--ControlPort", strconv.Itoa(int(t.cfg.ControlPort)),
		"--DataDirectory", dataDir,
	}
	if t.cfg.UpstreamProxy != "" {
		t.log.Infof("chaining tor through upstream proxy %s", t.cfg.UpstreamProxy)
		args = append(args, "--Socks5Proxy", t.cfg.UpstreamProxy)
	}

	t.setState(Starting)
	t.log.Info("starting tor")
	if err := t.process.spawn("tor", t.cfg.BinaryPath, args, t.log); err != nil {
		t.setState(Idle)
		return err
	}
	t.setState(Running)

	return nil
}

func (t *Tor) Stop() error {
	err := t.process.stop()
	t.setState(Stopped)

	return err
}

func (t *Tor) Healthy() bool {
	return t.process.alive()
}

func (t *Tor) ProxyEndpoint() string {
	return fmt.Sprintf("127.0.0.1:%d", t.cfg.SocksPort)
}
