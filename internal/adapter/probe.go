package adapter

import (
	"net/http"
	"sync"
	"time"
)

// probeTimeout bounds the single connectivity check a probe-only adapter performs in Start.
// Loopback daemons answer in milliseconds; anything slower is as good as down.
const probeTimeout = 3 * time.Second

// probeClient is shared by all HTTP probe variants.
var probeClient = &http.Client{Timeout: probeTimeout}

// connFlag is the "most recently seen connectivity" bit of the probe-only adapters.
type connFlag struct {
	mu        sync.Mutex
	connected bool
}

func (t *connFlag) set(v bool) {
	t.mu.Lock()
	t.connected = v
	t.mu.Unlock()
}

func (t *connFlag) get() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.connected
}

// httpProbe issues one request and reports whether the endpoint answered 2xx. decorate, when
// non-nil, adds credentials or API keys to the request before it is sent.
func httpProbe(method, url string, decorate func(*http.Request)) bool {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return false
	}
	if decorate != nil {
		decorate(req)
	}

	resp, err := probeClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
