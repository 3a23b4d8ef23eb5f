package adapter

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/settings"
)

// fcpHello is the minimal FCP exchange: the node answers a ClientHello with a NodeHello block.
const fcpHello = "ClientHello\nName=Chimera\nExpectedVersion=2.0\nEndMessage\n"

// Freenet is a probe-only adapter over a Freenet/Hyphanet node. Connectivity is checked over
// FCP; content access goes through FProxy, which is the endpoint handed to the router.
type Freenet struct {
	common
	cfg  settings.FreenetSettings
	conn connFlag
}

func NewFreenet(cfg settings.FreenetSettings, log *logrus.Logger) *Freenet {
	return &Freenet{common: common{backend: backend.Freenet, enabled: cfg.Enabled, log: log}, cfg: cfg}
}

func (t *Freenet) Start() error {
	if !t.enabled {
		return nil
	}
	if t.conn.get() {
		return nil // Already connected
	}

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(int(t.cfg.FCPPort)))
	ok, err := fcpProbe(addr)
	if err != nil {
		t.log.Warnf("freenet fcp not responding at %s: %v", addr, err)
		return nil
	}
	if !ok {
		t.log.Warnf("freenet node at %s rejected our ClientHello", addr)
		return nil
	}

	t.conn.set(true)
	t.setState(Running)
	t.log.Infof("freenet adapter up (fproxy http://%s)", t.ProxyEndpoint())

	return nil
}

func (t *Freenet) Stop() error {
	t.conn.set(false)
	t.setState(Stopped)

	return nil
}

func (t *Freenet) Healthy() bool {
	return t.conn.get()
}

func (t *Freenet) ProxyEndpoint() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(int(t.cfg.FProxyPort)))
}

// fcpProbe performs one ClientHello round trip. Success is the literal NodeHello marker anywhere
// in the first response read - FCP is line oriented but we have no need to parse further.
func fcpProbe(addr string) (bool, error) {
	conn, err := net.DialTimeout("tcp", addr, probeTimeout)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(probeTimeout))

	if _, err := conn.Write([]byte(fcpHello)); err != nil {
		return false, err
	}

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return false, err
	}

	return strings.Contains(string(buf[:n]), "NodeHello"), nil
}
