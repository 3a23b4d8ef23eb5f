/*
Package health holds the process-wide map of back-end liveness. Probe loops write one entry each
on their tick; status queries and the router's optional fallback hook read the whole map. The
writer path logs transitions so a back-end going quiet shows up in the logs exactly once rather
than every five seconds.

The map is guarded by a readers-writer lock: many concurrent readers on status queries, a single
writer per probe tick. Nothing here blocks on network I/O - the probing itself lives in the
supervisor.
*/
package health

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/thookham/chimera/internal/backend"
)

// State is the shared health map. Construct with New.
type State struct {
	mu  sync.RWMutex
	m   map[backend.Backend]bool
	log *logrus.Logger
}

// New constructs an empty State logging transitions to log.
func New(log *logrus.Logger) *State {
	return &State{m: make(map[backend.Backend]bool), log: log}
}

// Init seeds every enabled back-end with false. Call at supervisor start, before any probe runs,
// so status queries always find an entry for each enabled back-end.
func (t *State) Init(enabled []backend.Backend) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, b := range enabled {
		t.m[b] = false
	}
}

// Set records the latest probe observation and logs the transition if the value changed.
func (t *State) Set(b backend.Backend, healthy bool) {
	t.mu.Lock()
	prev, known := t.m[b]
	t.m[b] = healthy
	t.mu.Unlock()

	if known && prev == healthy {
		return
	}
	if healthy {
		t.log.Debugf("%s is now healthy", b)
	} else {
		t.log.Warnf("%s is now unhealthy", b)
	}
}

// Get returns the recorded health of b. Absent back-ends (disabled or cleared) read as false.
func (t *State) Get(b backend.Backend) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.m[b]
}

// Snapshot returns a copy of the map.
func (t *State) Snapshot() map[backend.Backend]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[backend.Backend]bool, len(t.m))
	for b, h := range t.m {
		out[b] = h
	}

	return out
}

// Clear drops every entry. Called on supervisor stop.
func (t *State) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.m = make(map[backend.Backend]bool)
}

// Len returns the entry count.
func (t *State) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.m)
}

//////////////////////////////////////////////////////////////////////

// Name is part of the reporter interface.
func (t *State) Name() string {
	return "Health"
}

// Report renders the map as a single stable line, e.g. "i2p=ok tor=down". Part of the reporter
// interface; resetCounters has no meaning for instantaneous state.
func (t *State) Report(resetCounters bool) string {
	snap := t.Snapshot()
	parts := make([]string, 0, len(snap))
	for b, h := range snap {
		word := "down"
		if h {
			word = "ok"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", b, word))
	}
	sort.Strings(parts)

	return strings.Join(parts, " ")
}
