package adapter

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// IPFS is a probe-only adapter over a Kubo node somebody else runs. Start checks the RPC API
// (POST /api/v0/id - Kubo rejects GET on its RPC surface); the endpoint handed to the router is
// the HTTP gateway, which the front-end splices to raw.
type IPFS struct {
	common
	cfg  settings.IPFSSettings
	conn connFlag
}

func NewIPFS(cfg settings.IPFSSettings, log *logrus.Logger) *IPFS {
	return &IPFS{common: common{backend: backend.IPFS, enabled: cfg.Enabled, log: log}, cfg: cfg}
}

func (t *IPFS) Start() error {
	if !t.enabled {
		return nil
	}
	if t.conn.get() {
		return nil // Already connected
	}

	if !httpProbe(http.MethodPost, t.cfg.APIURL+"/api/v0/id", nil) {
		t.log.Warnf("ipfs node not responding at %s - start kubo with: ipfs daemon", t.cfg.APIURL)
		return nil
	}

	t.conn.set(true)
	t.setState(Running)
	t.log.Infof("ipfs adapter up (gateway 127.0.0.1:%d)", t.cfg.GatewayPort)

	return nil
}

func (t *IPFS) Stop() error {
	t.conn.set(false)
	t.setState(Stopped)

	return nil
}

func (t *IPFS) Healthy() bool {
	return t.conn.get()
}

func (t *IPFS) ProxyEndpoint() string {
	return fmt.Sprintf("127.0.0.1:%d", t.cfg.GatewayPort)
}
