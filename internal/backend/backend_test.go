package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringParseRoundTrip(t *testing.T) {
	for _, b := range All() {
		got, ok := Parse(b.String())
		require.True(t, ok, b.String())
		assert.Equal(t, b, got)
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	for _, tag := range []string{"", "TOR", "Tor", "i2pd", "wireguard", "onion"} {
		_, ok := Parse(tag)
		assert.False(t, ok, tag)
	}
}

func TestAllCoversClosedSet(t *testing.T) {
	all := All()
	require.Len(t, all, 10)
	seen := make(map[Backend]bool)
	for _, b := range all {
		assert.False(t, seen[b], "duplicate %s", b)
		seen[b] = true
	}

	// Start order is an interface contract of the supervisor
	assert.Equal(t, Tor, all[0])
	assert.Equal(t, Nym, all[1])
}

func TestStringOutOfRange(t *testing.T) {
	assert.Contains(t, Backend(99).String(), "99")
}
