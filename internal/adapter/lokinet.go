package adapter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// lokinetTemplate is the ini shipped alongside the binary; when present it is copied into the
// data directory so lokinet's own state and its config travel together.
const lokinetTemplate = "chimera.lokinet.ini"

// Lokinet is the spawn-and-watch adapter for lokinet. Unlike tor/i2pd it takes a single
// positional argument: the path of its ini file.
type Lokinet struct {
	common
	cfg     settings.LokinetSettings
	process process
}

func NewLokinet(cfg settings.LokinetSettings, log *logrus.Logger) *Lokinet {
	return &Lokinet{common: common{backend: backend.Lokinet, enabled: cfg.Enabled, log: log}, cfg: cfg}
}

func (t *Lokinet) Start() error {
	if !t.enabled {
		return nil
	}
	if t.process.alive() {
		return nil
	}
	if !binaryPresent("lokinet", t.cfg.BinaryPath, t.log) {
		return nil
	}

	dataDir, err := ensureDataDir("lokinet")
	if err != nil {
		return fmt.Errorf("lokinet: data directory: %w", err)
	}

	iniPath := filepath.Join(dataDir, "lokinet.ini")
	if err := copyFile(lokinetTemplate, iniPath); err != nil {
		t.log.Warnf("lokinet config template %s not available: %v", lokinetTemplate, err)
	}

	t.setState(Starting)
	t.log.Info("starting lokinet")
	if err := t.process.spawn("lokinet", t.cfg.BinaryPath, []string{iniPath}, t.log); err != nil {
		t.setState(Idle)
		return err
	}
	t.setState(Running)

	return nil
}

func (t *Lokinet) Stop() error {
	err := t.process.stop()
	t.setState(Stopped)

	return err
}

func (t *Lokinet) Healthy() bool {
	return t.process.alive()
}

func (t *Lokinet) ProxyEndpoint() string {
	return fmt.Sprintf("127.0.0.1:%d", t.cfg.SocksPort)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)

	return err
}
