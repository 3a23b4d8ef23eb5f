package sockswire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadGreeting(t *testing.T) {
	assert.NoError(t, ReadGreeting(bytes.NewReader([]byte{0x05, 0x01, 0x00})))
	assert.NoError(t, ReadGreeting(bytes.NewReader([]byte{0x05, 0x02, 0x00, 0x02})))

	assert.ErrorIs(t, ReadGreeting(bytes.NewReader([]byte{0x04, 0x01, 0x00})), ErrBadVersion)
	assert.ErrorIs(t, ReadGreeting(bytes.NewReader([]byte{0x05, 0x00})), ErrNoMethods)

	// Short reads must error, not hang or succeed
	assert.Error(t, ReadGreeting(bytes.NewReader([]byte{0x05})))
	assert.Error(t, ReadGreeting(bytes.NewReader([]byte{0x05, 0x03, 0x00})))
}

func TestReadRequestDomain(t *testing.T) {
	wire := []byte{0x05, 0x01, 0x00, 0x03, 0x0a}
	wire = append(wire, []byte("test.onion")...)
	wire = append(wire, 0x00, 0x50)

	req, err := ReadRequest(bytes.NewReader(wire))
	require.NoError(t, err)
	assert.Equal(t, "test.onion", req.Host)
	assert.Equal(t, uint16(80), req.Port)
	assert.True(t, req.Domain)
	assert.Equal(t, "test.onion:80", req.Target())
}

func TestReadRequestIPv4(t *testing.T) {
	wire := []byte{0x05, 0x01, 0x00, 0x01, 10, 11, 12, 13, 0x01, 0xbb}

	req, err := ReadRequest(bytes.NewReader(wire))
	require.NoError(t, err)
	assert.Equal(t, "10.11.12.13", req.Host)
	assert.Equal(t, uint16(443), req.Port)
	assert.False(t, req.Domain)
}

func TestReadRequestRejections(t *testing.T) {
	testCases := []struct {
		name string
		wire []byte
		want error
	}{
		{"bad version", []byte{0x04, 0x01, 0x00, 0x01, 1, 2, 3, 4, 0, 80}, ErrBadVersion},
		{"BIND", []byte{0x05, 0x02, 0x00, 0x01, 1, 2, 3, 4, 0, 80}, ErrBadCommand},
		{"UDP ASSOCIATE", []byte{0x05, 0x03, 0x00, 0x01, 1, 2, 3, 4, 0, 80}, ErrBadCommand},
		{"IPv6", []byte{0x05, 0x01, 0x00, 0x04}, ErrBadAddrType},
		{"empty domain", []byte{0x05, 0x01, 0x00, 0x03, 0x00, 0, 80}, ErrEmptyDomain},
	}

	for _, tc := range testCases {
		_, err := ReadRequest(bytes.NewReader(tc.wire))
		assert.ErrorIs(t, err, tc.want, tc.name)
	}

	// Truncated frames error out as well
	_, err := ReadRequest(bytes.NewReader([]byte{0x05, 0x01}))
	assert.Error(t, err)
	_, err = ReadRequest(bytes.NewReader([]byte{0x05, 0x01, 0x00, 0x03, 0x05, 'a', 'b'}))
	assert.Error(t, err)
}

func TestReplies(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMethodSelect(&buf))
	assert.Equal(t, []byte{0x05, 0x00}, buf.Bytes())

	buf.Reset()
	require.NoError(t, WriteSuccess(&buf))
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0}, buf.Bytes())
}
