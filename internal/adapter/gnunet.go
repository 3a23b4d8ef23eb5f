package adapter

import (
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// gnunetARM is resolved from PATH - GNUnet installs system-wide and runs under its own service
// manager, so there is no binary_path to configure.
const gnunetARM = "gnunet-arm"

// GNUnet is a probe-only adapter. GNUnet runs under gnunet-arm; `gnunet-arm -I` lists running
// services and exits zero iff the peer is up, which is the whole probe.
type GNUnet struct {
	common
	cfg  settings.GNUnetSettings
	conn connFlag
}

func NewGNUnet(cfg settings.GNUnetSettings, log *logrus.Logger) *GNUnet {
	return &GNUnet{common: common{backend: backend.GNUnet, enabled: cfg.Enabled, log: log}, cfg: cfg}
}

func (t *GNUnet) Start() error {
	if !t.enabled {
		return nil
	}
	if t.conn.get() {
		return nil // Already connected
	}

	if err := exec.Command(gnunetARM, "-I").Run(); err != nil {
		t.log.Warnf("gnunet service check failed: %v - is GNUnet installed and in PATH?", err)
		return nil
	}

	t.conn.set(true)
	t.setState(Running)
	t.log.Infof("gnunet adapter up (socks 127.0.0.1:%d)", t.cfg.SocksPort)

	return nil
}

func (t *GNUnet) Stop() error {
	t.conn.set(false)
	t.setState(Stopped)

	return nil
}

func (t *GNUnet) Healthy() bool {
	return t.conn.get()
}

func (t *GNUnet) ProxyEndpoint() string {
	return fmt.Sprintf("127.0.0.1:%d", t.cfg.SocksPort)
}
