package adapter

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// Tribler is a probe-only adapter over Tribler's REST API.
type Tribler struct {
	common
	cfg  settings.TriblerSettings
	conn connFlag
}

func NewTribler(cfg settings.TriblerSettings, log *logrus.Logger) *Tribler {
	return &Tribler{common: common{backend: backend.Tribler, enabled: cfg.Enabled, log: log}, cfg: cfg}
}

func (t *Tribler) Start() error {
	if !t.enabled {
		return nil
	}
	if t.conn.get() {
		return nil // Already connected
	}

	ok := httpProbe(http.MethodGet, t.cfg.APIURL+"/variables", func(req *http.Request) {
		if t.cfg.APIKey != "" {
			req.Header.Set("X-Api-Key", t.cfg.APIKey)
		}
	})
	if !ok {
		t.log.Warnf("tribler api not responding at %s", t.cfg.APIURL)
		return nil
	}

	t.conn.set(true)
	t.setState(Running)
	t.log.Infof("tribler adapter up (%s)", t.cfg.APIURL)

	return nil
}

func (t *Tribler) Stop() error {
	t.conn.set(false)
	t.setState(Stopped)

	return nil
}

func (t *Tribler) Healthy() bool {
	return t.conn.get()
}

func (t *Tribler) ProxyEndpoint() string {
	return t.cfg.APIURL
}
