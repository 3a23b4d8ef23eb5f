package adapter

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// RetroShare is a probe-only adapter over RetroShare's JSON API. The API URL is both the probe
// target and the endpoint handed to the router - clients talk to RetroShare over its own HTTP
// API, so the front-end splices raw.
type RetroShare struct {
	common
	cfg  settings.RetroShareSettings
	conn connFlag
}

func NewRetroShare(cfg settings.RetroShareSettings, log *logrus.Logger) *RetroShare {
	return &RetroShare{common: common{backend: backend.RetroShare, enabled: cfg.Enabled, log: log}, cfg: cfg}
}

func (t *RetroShare) Start() error {
	if !t.enabled {
		return nil
	}
	if t.conn.get() {
		return nil // Already connected
	}

	ok := httpProbe(http.MethodGet, t.cfg.APIURL, func(req *http.Request) {
		if t.cfg.User != "" {
			req.SetBasicAuth(t.cfg.User, t.cfg.Password)
		}
	})
	if !ok {
		t.log.Warnf("retroshare api not responding at %s - is the JSON API enabled?", t.cfg.APIURL)
		return nil
	}

	t.conn.set(true)
	t.setState(Running)
	t.log.Infof("retroshare adapter up (%s)", t.cfg.APIURL)

	return nil
}

func (t *RetroShare) Stop() error {
	t.conn.set(false)
	t.setState(Stopped)

	return nil
}

func (t *RetroShare) Healthy() bool {
	return t.conn.get()
}

func (t *RetroShare) ProxyEndpoint() string {
	return t.cfg.APIURL
}
