/*
Package logbuffer holds the bounded in-memory log ring the facade serves to UI clients. The
buffer retains the newest entries in arrival order and silently evicts the oldest once the bound
is reached, so a long-running daemon's control surface always answers get_logs quickly and with
recent material.

The buffer doubles as a logrus Hook: register it once at bootstrap and every entry that reaches
the logger is also recorded here. Timestamps are formatted HH:MM:SS in local time at arrival,
which is what the desktop shell displays verbatim.
*/
package logbuffer

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one captured log line.
type Entry struct {
	Timestamp string `json:"timestamp"` // HH:MM:SS local
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// Buffer is the bounded ring. The zero value is not usable; construct with New.
type Buffer struct {
	mu      sync.Mutex
	bound   int
	entries []Entry
}

// New constructs a Buffer retaining at most bound entries. A non-positive bound panics - the
// bound is a compile-time constant in practice and zero would leave no room for any entry.
func New(bound int) *Buffer {
	if bound <= 0 {
		panic("logbuffer.New: bound must be positive")
	}

	return &Buffer{bound: bound}
}

// Add appends an entry, evicting the oldest when full.
func (t *Buffer) Add(now time.Time, level, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) == t.bound {
		copy(t.entries, t.entries[1:])
		t.entries = t.entries[:t.bound-1]
	}
	t.entries = append(t.entries, Entry{
		Timestamp: now.Format("15:04:05"),
		Level:     level,
		Message:   message,
	})
}

// Snapshot returns a copy of the retained entries, oldest first.
func (t *Buffer) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Entry{}, t.entries...)
}

// Clear empties the buffer.
func (t *Buffer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = nil
}

// Len returns the current entry count.
func (t *Buffer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

//////////////////////////////////////////////////////////////////////
// logrus.Hook implementation
//////////////////////////////////////////////////////////////////////

// Levels makes the buffer capture every level the logger emits.
func (t *Buffer) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire records the entry. It never returns an error - a full ring evicts, it does not fail.
func (t *Buffer) Fire(e *logrus.Entry) error {
	t.Add(e.Time, e.Level.String(), e.Message)

	return nil
}
