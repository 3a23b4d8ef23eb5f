package adapter

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// I2P is the spawn-and-watch adapter for i2pd. i2pd takes key=value flags rather than tor-style
// option pairs.
type I2P struct {
	common
	cfg     settings.I2PSettings
	process process
}

func NewI2P(cfg settings.I2PSettings, log *logrus.Logger) *I2P {
	return &I2P{common: common{backend: backend.I2P, enabled: cfg.Enabled, log: log}, cfg: cfg}
}

func (t *I2P) Start() error {
	if !t.enabled {
		return nil
	}
	if t.process.alive() {
		return nil
	}
	if !binaryPresent("i2pd", t.cfg.BinaryPath, t.log) {
		return nil
	}

	dataDir, err := ensureDataDir("i2p")
	if err != nil {
		return fmt.Errorf("i2p: data directory: %w", err)
	}

	args := []string{
		fmt.Sprintf("--socksproxy.port=%d", t.cfg.SocksPort),
		fmt.Sprintf("--httpproxy.port=%d", t.cfg.HTTPProxyPort),
		"--datadir=" + dataDir,
	}

	t.setState(Starting)
	t.log.Info("starting i2pd")
	if err := t.process.spawn("i2p", t.cfg.BinaryPath, args, t.log); err != nil {
		t.setState(Idle)
		return err
	}
	t.setState(Running)

	return nil
}

func (t *I2P) Stop() error {
	err := t.process.stop()
	t.setState(Stopped)

	return err
}

func (t *I2P) Healthy() bool {
	return t.process.alive()
}

func (t *I2P) ProxyEndpoint() string {
	return fmt.Sprintf("127.0.0.1:%d", t.cfg.SocksPort)
}
