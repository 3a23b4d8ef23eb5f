/*
Package frontend is the SOCKS5 entry point every client application talks to. One listener
accepts connections; each connection runs in its own goroutine through the fixed pipeline:

	greeting -> method select -> CONNECT request -> route -> open upstream -> reply -> splice

Routing is purely by destination hostname (internal/router). For back-ends whose endpoint speaks
SOCKS5 the upstream connection is opened through a golang.org/x/net/proxy SOCKS5 dialer, which
performs the standard method negotiation and forwards domain-form targets as DOMAINNAME so the
back-end does its own name resolution. Gateway back-ends (IPFS, ZeroNet, Freenet FProxy,
RetroShare, Tribler) get a raw TCP connection and an immediate splice - their clients speak HTTP
the gateway already understands.

Everything that can go wrong with one session stays inside that session: malformed SOCKS5 is
silently dropped, upstream dial errors drop the session, and a panic in the handler is recovered
and logged. The listener keeps accepting throughout.
*/
package frontend

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"

	"github.com/thookham/chimera/internal/backend"
	"github.com/thookham/chimera/internal/constants"
	"github.com/thookham/chimera/internal/metrics"
	"github.com/thookham/chimera/internal/router"
	"github.com/thookham/chimera/internal/sockswire"
)

const ( // fe = Front-end Error index into failureCounters
	feClientProtocol = iota // Malformed SOCKS5 from the client
	feNoEndpoint            // Selected back-end exposes no proxy endpoint
	feUpstreamDial          // Could not reach or handshake the upstream
	feListSize
)

type stats struct {
	sessionCount    int             // Sessions that reached the splice
	activeSessions  int             // Sessions currently inside handle()
	peakSessions    int             // High-water mark of activeSessions per report period
	failureCounters [feListSize]int // Sessions dropped before the splice
	routedCounters  map[string]int  // Splice-reached sessions per back-end tag
}

// EndpointFunc resolves a back-end to the endpoint the front-end should dial. Empty means the
// back-end exposes no proxy (tunnel-only) and the session is dropped.
type EndpointFunc func(b backend.Backend) string

// Server is the SOCKS5 listener plus per-session pipeline. Construct with New; Start and Stop
// may be cycled.
type Server struct {
	listenAddress string
	table         *router.Table
	endpoints     EndpointFunc
	log           *logrus.Logger
	bufSize       int

	mu       sync.Mutex // Protects everything below
	listener net.Listener
	wg       sync.WaitGroup
	stats
}

// New constructs a Server. Nothing is bound until Start.
func New(listenAddress string, table *router.Table, endpoints EndpointFunc, log *logrus.Logger) *Server {
	return &Server{
		listenAddress: listenAddress,
		table:         table,
		endpoints:     endpoints,
		log:           log,
		bufSize:       constants.Get().SpliceBufferSize,
		stats:         stats{routedCounters: make(map[string]int)},
	}
}

// Start binds the listener and launches the accept loop. It returns with the socket open (or an
// error), so callers can treat a nil return as "clients can connect now".
func (t *Server) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listener != nil {
		return fmt.Errorf("frontend: already listening on %s", t.listenAddress)
	}

	ln, err := net.Listen("tcp", t.listenAddress)
	if err != nil {
		return fmt.Errorf("frontend: %w", err)
	}
	t.listener = ln
	t.log.Infof("SOCKS5 proxy listening on %s", ln.Addr())

	t.wg.Add(1)
	go t.acceptLoop(ln)

	return nil
}

// Stop closes the listener. In-flight sessions continue until their peers close.
func (t *Server) Stop() {
	t.mu.Lock()
	ln := t.listener
	t.listener = nil
	t.mu.Unlock()

	if ln != nil {
		ln.Close()
		t.wg.Wait()
	}
}

// Running reports whether the listener is bound.
func (t *Server) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.listener != nil
}

// Addr returns the bound address, empty when stopped. Mostly for tests using port 0.
func (t *Server) Addr() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listener == nil {
		return ""
	}

	return t.listener.Addr().String()
}

func (t *Server) acceptLoop(ln net.Listener) {
	defer t.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return // Listener closed by Stop (or a fatal accept error); either way we are done
		}
		go t.handle(conn)
	}
}

// handle runs one session start to finish. All errors are session-local.
func (t *Server) handle(client net.Conn) {
	defer client.Close()
	defer func() {
		if r := recover(); r != nil {
			t.log.Errorf("session panic: %v", r)
		}
	}()

	t.sessionEnter()
	defer t.sessionLeave()

	if err := sockswire.ReadGreeting(client); err != nil {
		t.dropProtocol(client, err)
		return
	}
	if err := sockswire.WriteMethodSelect(client); err != nil {
		t.dropProtocol(client, err)
		return
	}

	req, err := sockswire.ReadRequest(client)
	if err != nil {
		t.dropProtocol(client, err)
		return
	}

	selected := t.table.Route(req.Host)
	endpoint := t.endpoints(selected)
	if endpoint == "" {
		t.addFailure(feNoEndpoint)
		t.log.Debugf("%s has no proxy endpoint - dropping %s", selected, req.Target())
		return
	}

	upstream, err := t.openUpstream(selected, endpoint, req)
	if err != nil {
		t.addFailure(feUpstreamDial)
		metrics.SessionErrors.WithLabelValues("upstream").Inc()
		t.log.Debugf("upstream %s (%s) for %s: %v", endpoint, selected, req.Target(), err)
		return
	}
	defer upstream.Close()

	if err := sockswire.WriteSuccess(client); err != nil {
		t.dropProtocol(client, err)
		return
	}

	t.addSession(selected)
	metrics.SessionsTotal.WithLabelValues(selected.String()).Inc()
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	t.log.Debugf("splicing %s via %s (%s)", req.Target(), selected, endpoint)
	t.splice(client, upstream)
}

// openUpstream connects to the selected back-end. SOCKS5-speaking back-ends get the full method
// negotiation and CONNECT exchange via x/net/proxy with the original target carried through;
// gateway back-ends get a plain TCP connection.
func (t *Server) openUpstream(selected backend.Backend, endpoint string, req *sockswire.Request) (net.Conn, error) {
	addr, err := dialableAddr(endpoint)
	if err != nil {
		return nil, err
	}

	if !router.SpeaksSOCKS5(selected) {
		return net.Dial("tcp", addr)
	}

	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	return dialer.Dial("tcp", req.Target())
}

// splice pumps bytes both ways until each direction has seen EOF. A direction that finishes
// half-closes its peer so the other side observes EOF in its own time; TCP flow control is the
// only backpressure.
func (t *Server) splice(client, upstream net.Conn) {
	var g errgroup.Group
	g.Go(func() error { return t.copyHalf(upstream, client) })
	g.Go(func() error { return t.copyHalf(client, upstream) })
	g.Wait() // Errors are expected session teardown; nothing to do with them
}

func (t *Server) copyHalf(dst, src net.Conn) error {
	buf := make([]byte, t.bufSize)
	_, err := io.CopyBuffer(dst, src, buf)
	if cw, ok := dst.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
	} else {
		dst.Close()
	}

	return err
}

func (t *Server) dropProtocol(client net.Conn, err error) {
	t.addFailure(feClientProtocol)
	metrics.SessionErrors.WithLabelValues("protocol").Inc()
	t.log.Debugf("client %s: %v", client.RemoteAddr(), err)
}

// sessionEnter/sessionLeave bracket handle() so Report can show peak concurrency per period.
func (t *Server) sessionEnter() {
	t.mu.Lock()
	t.activeSessions++
	if t.activeSessions > t.peakSessions {
		t.peakSessions = t.activeSessions
	}
	t.mu.Unlock()
}

func (t *Server) sessionLeave() {
	t.mu.Lock()
	t.activeSessions--
	t.mu.Unlock()
}

func (t *Server) addFailure(ix int) {
	t.mu.Lock()
	t.failureCounters[ix]++
	t.mu.Unlock()
}

func (t *Server) addSession(b backend.Backend) {
	t.mu.Lock()
	t.sessionCount++
	t.routedCounters[b.String()]++
	t.mu.Unlock()
}

// dialableAddr reduces an endpoint to something net.Dial accepts. Gateway endpoints configured
// as URLs lose their scheme and path; host:port strings pass through.
func dialableAddr(endpoint string) (string, error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}

	return host, nil
}

//////////////////////////////////////////////////////////////////////

// Name is part of the reporter interface.
func (t *Server) Name() string {
	return "SOCKS5"
}

// Report renders session counters, e.g.
// "ok=12 peak=3 errs=1/0/2 (proto/noend/dial) routes: i2p=4 tor=8".
func (t *Server) Report(resetCounters bool) string {
	t.mu.Lock()
	ok := t.sessionCount
	peak := t.peakSessions
	fc := t.failureCounters
	routes := make([]string, 0, len(t.routedCounters))
	for tag, n := range t.routedCounters {
		routes = append(routes, fmt.Sprintf("%s=%d", tag, n))
	}
	if resetCounters {
		t.sessionCount = 0
		t.peakSessions = t.activeSessions // Live sessions carry into the next period
		t.failureCounters = [feListSize]int{}
		t.routedCounters = make(map[string]int)
	}
	t.mu.Unlock()

	sort.Strings(routes)
	line := fmt.Sprintf("ok=%d peak=%d errs=%d/%d/%d (proto/noend/dial)",
		ok, peak, fc[feClientProtocol], fc[feNoEndpoint], fc[feUpstreamDial])
	if len(routes) > 0 {
		line += " routes: " + strings.Join(routes, " ")
	}

	return line
}
