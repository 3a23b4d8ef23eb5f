package logbuffer

import (
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndSnapshot(t *testing.T) {
	b := New(500)
	when := time.Date(2025, 6, 1, 9, 30, 7, 0, time.Local)
	b.Add(when, "info", "first")
	b.Add(when, "warn", "second")

	got := b.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, Entry{Timestamp: "09:30:07", Level: "info", Message: "first"}, got[0])
	assert.Equal(t, "second", got[1].Message)
}

// The bound is never exceeded and after N additions the newest entries remain in arrival order.
func TestEviction(t *testing.T) {
	b := New(500)
	when := time.Now()
	for i := 0; i < 1200; i++ {
		b.Add(when, "debug", fmt.Sprintf("msg-%d", i))
	}

	got := b.Snapshot()
	require.Len(t, got, 500)
	assert.Equal(t, "msg-700", got[0].Message)
	assert.Equal(t, "msg-1199", got[499].Message)
}

func TestClear(t *testing.T) {
	b := New(10)
	b.Add(time.Now(), "info", "x")
	require.Equal(t, 1, b.Len())
	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Snapshot())

	// Usable after Clear
	b.Add(time.Now(), "info", "y")
	assert.Equal(t, 1, b.Len())
}

func TestLogrusHook(t *testing.T) {
	b := New(10)
	logger := logrus.New()
	logger.SetOutput(nullWriter{})
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(b)

	logger.Debug("dbg line")
	logger.Warn("warn line")

	got := b.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "debug", got[0].Level)
	assert.Equal(t, "dbg line", got[0].Message)
	assert.Equal(t, "warning", got[1].Level)
}

func TestNewPanicsOnBadBound(t *testing.T) {
	assert.Panics(t, func() { New(0) })
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }
