package adapter

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// Nym is the spawn-and-watch adapter for the nym-socks5-client. The client is useless without a
// network requester to exit through, so an unset upstream_provider downgrades Start to a warning
// rather than launching a client that can never complete a request.
type Nym struct {
	common
	cfg     settings.NymSettings
	process process
}

func NewNym(cfg settings.NymSettings, log *logrus.Logger) *Nym {
	return &Nym{common: common{backend: backend.Nym, enabled: cfg.Enabled, log: log}, cfg: cfg}
}

// SetUpstreamProvider replaces the configured upstream_provider (the nym_over_tor chain sets it to
// Tor's SOCKS endpoint). Must be called before Start. The value only decides whether Start
// proceeds and is logged; it is not passed on the client's command line.
func (t *Nym) SetUpstreamProvider(provider string) {
	t.cfg.UpstreamProvider = provider
}

func (t *Nym) Start() error {
	if !t.enabled {
		return nil
	}
	if t.process.alive() {
		return nil
	}
	if t.cfg.UpstreamProvider == "" {
		t.log.Warn("nym enabled but nym.upstream_provider is not configured - skipping nym start")
		return nil
	}
	if !binaryPresent("nym-socks5-client", t.cfg.BinaryPath, t.log) {
		return nil
	}

	if _, err := ensureDataDir("nym"); err != nil {
		return fmt.Errorf("nym: data directory: %w", err)
	}

	t.setState(Starting)
	t.log.Infof("starting nym socks5 client with provider %s", t.cfg.UpstreamProvider)
	args := []string{"run", "--id", t.cfg.ClientID}
	if err := t.process.spawn("nym", t.cfg.BinaryPath, args, t.log); err != nil {
		t.setState(Idle)
		return err
	}
	t.setState(Running)

	return nil
}

func (t *Nym) Stop() error {
	err := t.process.stop()
	t.setState(Stopped)

	return err
}

func (t *Nym) Healthy() bool {
	return t.process.alive()
}

func (t *Nym) ProxyEndpoint() string {
	return fmt.Sprintf("127.0.0.1:%d", t.cfg.SocksPort)
}
