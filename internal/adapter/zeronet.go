package adapter

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// ZeroNet is a probe-only adapter over a running ZeroNet instance. The proxy URL doubles as the
// endpoint: ZeroNet serves sites over plain HTTP, so the front-end splices to it raw.
type ZeroNet struct {
	common
	cfg  settings.ZeroNetSettings
	conn connFlag
}

func NewZeroNet(cfg settings.ZeroNetSettings, log *logrus.Logger) *ZeroNet {
	return &ZeroNet{common: common{backend: backend.ZeroNet, enabled: cfg.Enabled, log: log}, cfg: cfg}
}

func (t *ZeroNet) Start() error {
	if !t.enabled {
		return nil
	}
	if t.conn.get() {
		return nil // Already connected
	}

	if !httpProbe(http.MethodGet, t.cfg.ProxyURL+"/ZeroNet-Internal/Stats", nil) {
		t.log.Warnf("zeronet daemon not responding at %s - start it with: python zeronet.py", t.cfg.ProxyURL)
		return nil
	}

	t.conn.set(true)
	t.setState(Running)
	t.log.Infof("zeronet adapter up (%s)", t.cfg.ProxyURL)

	return nil
}

func (t *ZeroNet) Stop() error {
	t.conn.set(false)
	t.setState(Stopped)

	return nil
}

func (t *ZeroNet) Healthy() bool {
	return t.conn.get()
}

func (t *ZeroNet) ProxyEndpoint() string {
	return t.cfg.ProxyURL
}
