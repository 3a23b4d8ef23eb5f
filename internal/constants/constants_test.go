package constants

import (
	"testing"
)

// Mostly a compile-time test, but make sure the values callers rely on as interface contracts
// haven't been fiddled with by accident.
func TestGet(t *testing.T) {
	c1 := Get()
	if c1.ProgramName != "chimera" {
		t.Error("ProgramName has changed", c1.ProgramName)
	}
	if c1.ProxyDefaultPort != "9050" {
		t.Error("Default SOCKS5 port is part of the CLI contract", c1.ProxyDefaultPort)
	}
	if c1.ProbeInterval.Seconds() != 5 {
		t.Error("Probe cadence is fixed at 5s", c1.ProbeInterval)
	}
	if c1.ChainStartDelay.Seconds() != 2 {
		t.Error("Chain inter-start delay is fixed at 2s", c1.ChainStartDelay)
	}
	if c1.LogRingSize != 500 {
		t.Error("Log ring bound is fixed at 500", c1.LogRingSize)
	}

	// Get() returns a copy - modifications must not leak back

	c1.Version = "mangled"
	c2 := Get()
	if c2.Version == c1.Version {
		t.Error("Get() does not protect against caller modification")
	}
}
