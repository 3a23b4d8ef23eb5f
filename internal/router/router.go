/*
Package router maps a destination hostname to the back-end that should carry the connection. The
rule table is fixed at construction and matching is purely lexical - no DNS lookups, no TLD
knowledge - applied to the raw host exactly as the client sent it. The first matching rule wins
and everything that matches nothing falls through to Tor.

Matching is deliberately case-sensitive. ".ONION" is not ".onion" and takes the default route;
clients that want special-suffix routing send the suffix the way the network documents it.

The retroshare/tribler rules are substring tests across the whole host. That admits false
positives (my.retroshare-site.example routes to RetroShare) which is the behaviour deployments
have come to depend on, so it stays.
*/
package router

import (
	"strings"

	"github.com/thookham/chimera/internal/backend"
)

// HealthReader is the read-only slice of the health state the optional fallback hook consults.
type HealthReader interface {
	Get(b backend.Backend) bool
}

type rule struct {
	match func(host string) bool
	to    backend.Backend
}

// Table is the immutable host classifier. Construct with New and share freely across sessions -
// Route never mutates state and needs no synchronization.
type Table struct {
	rules []rule

	// Optional fallback hook. Both must be non-nil for the hook to engage.
	health    HealthReader
	fallbacks map[backend.Backend]backend.Backend
}

// Option adjusts a Table under construction.
type Option func(*Table)

// WithFallback enables the health-fallback hook: when the rule-selected back-end is unhealthy and
// has an entry in fallbacks, the fallback is substituted. Off unless this option is supplied.
func WithFallback(h HealthReader, fallbacks map[backend.Backend]backend.Backend) Option {
	return func(t *Table) {
		t.health = h
		t.fallbacks = fallbacks
	}
}

func suffix(s string, to backend.Backend) rule {
	return rule{func(host string) bool { return strings.HasSuffix(host, s) }, to}
}

func prefix(s string, to backend.Backend) rule {
	return rule{func(host string) bool { return strings.HasPrefix(host, s) }, to}
}

func contains(s string, to backend.Backend) rule {
	return rule{func(host string) bool { return strings.Contains(host, s) }, to}
}

func anyOf(to backend.Backend, rules ...rule) rule {
	return rule{func(host string) bool {
		for _, r := range rules {
			if r.match(host) {
				return true
			}
		}
		return false
	}, to}
}

// New constructs the rule table. The order of entries defines routing priority.
func New(opts ...Option) *Table {
	t := &Table{
		rules: []rule{
			suffix(".onion", backend.Tor),
			suffix(".i2p", backend.I2P),
			suffix(".loki", backend.Lokinet),
			suffix(".nym", backend.Nym),
			suffix(".bit", backend.ZeroNet),
			anyOf(backend.IPFS, suffix(".eth", backend.IPFS), suffix(".ipfs", backend.IPFS)),
			anyOf(backend.Freenet,
				prefix("USK@", backend.Freenet),
				prefix("SSK@", backend.Freenet),
				suffix(".freenet", backend.Freenet)),
			anyOf(backend.GNUnet, suffix(".gnu", backend.GNUnet), suffix(".zkey", backend.GNUnet)),
			contains("retroshare", backend.RetroShare),
			contains("tribler", backend.Tribler),
		},
	}

	for _, o := range opts {
		o(t)
	}

	return t
}

// Route classifies host. IPv4 literals carry no routable suffix so they fall through to the
// default like any other unmatched name.
func (t *Table) Route(host string) backend.Backend {
	selected := backend.Tor // Default route
	for _, r := range t.rules {
		if r.match(host) {
			selected = r.to
			break
		}
	}

	if t.health != nil && t.fallbacks != nil && !t.health.Get(selected) {
		if fb, ok := t.fallbacks[selected]; ok {
			return fb
		}
	}

	return selected
}

// SpeaksSOCKS5 reports whether the selected back-end's upstream endpoint expects a SOCKS5
// handshake. The rest are HTTP gateways or API endpoints which get a raw TCP splice. This is a
// property of the routing decision, not of the host.
func SpeaksSOCKS5(b backend.Backend) bool {
	switch b {
	case backend.Tor, backend.I2P, backend.Lokinet, backend.Nym, backend.GNUnet:
		return true
	}

	return false
}
