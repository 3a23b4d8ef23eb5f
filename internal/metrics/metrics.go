/*
Package metrics exposes the Prometheus view of the daemon: how many sessions each back-end has
carried, how many are in flight, and which back-ends currently look healthy. Collectors are
process-wide (a run has one front-end and one supervisor) and registered on the default
registry; the listener is only bound when the operator asks for one with --metrics-addr.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thookham/chimera/internal/backend"
)

var (
	// SessionsTotal counts accepted SOCKS5 sessions by the back-end they were routed to.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chimera",
		Name:      "sessions_total",
		Help:      "SOCKS5 sessions accepted, by selected back-end.",
	}, []string{"backend"})

	// SessionErrors counts sessions dropped before the splice completed.
	SessionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chimera",
		Name:      "session_errors_total",
		Help:      "SOCKS5 sessions dropped on protocol or upstream errors.",
	}, []string{"reason"})

	// ActiveSessions tracks in-flight splices.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chimera",
		Name:      "active_sessions",
		Help:      "SOCKS5 sessions currently splicing.",
	})

	// BackendHealthy mirrors the health map: 1 healthy, 0 not.
	BackendHealthy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chimera",
		Name:      "backend_healthy",
		Help:      "Most recent probe outcome per back-end.",
	}, []string{"backend"})
)

// SetHealth publishes one probe observation.
func SetHealth(b backend.Backend, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	BackendHealthy.WithLabelValues(b.String()).Set(v)
}

// Serve starts the metrics listener on addr. Returns once the listener fails or closes; run it
// in its own goroutine like any other server.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return http.ListenAndServe(addr, mux)
}
