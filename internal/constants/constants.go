/*
Package constants provides common values used across all chimera packages. Usage is to call the
global Get() function which returns the Constants by value ensuring that any modifications made
(accidental or otherwise) will not affect other modules when they call Get().

Typically usage:

	consts := constants.Get()
	fmt.Println("I am", consts.ProgramName, consts.Version)

The primary reason for making this a constructed struct rather than the more typical const () block
is so that it can be fed directly into templating packages for printing usage messages.
*/
package constants

import "time"

// Constants contains the system-wide constants
type Constants struct {
	ProgramName string // Package related constants
	Version     string
	PackageName string
	PackageURL  string
	RFC         string

	ProxyDefaultPort  string // SOCKS5 front-end related constants
	ProxyDefaultHost  string
	ConfigDefaultPath string

	ProbeInterval   time.Duration // Cadence of per-adapter health probes
	ChainStartDelay time.Duration // Wait between the two starts of a chain mode
	LogRingSize     int           // Upper bound of the facade's log buffer

	SpliceBufferSize int // Per-direction copy buffer in the byte pump

	DataDir string // Parent of the per-backend data directories
}

var readOnlyConstants *Constants

// createReadOnlyConstants creates a read-only copy of the Constants which is copied whenever a
// caller asks for the constants set. The main reason for returning a struct is so that callers can
// inspect and/or use packages that introspect - particularly */template packages.
func createReadOnlyConstants() {
	readOnlyConstants = &Constants{
		ProgramName: "chimera",
		Version:     "v0.4.0",
		PackageName: "Chimera Super Node",
		PackageURL:  "https://github.com/thookham/chimera",
		RFC:         "RFC1928",

		ProxyDefaultPort:  "9050",
		ProxyDefaultHost:  "127.0.0.1",
		ConfigDefaultPath: "chimera.toml",

		ProbeInterval:   5 * time.Second,
		ChainStartDelay: 2 * time.Second,
		LogRingSize:     500,

		SpliceBufferSize: 8 * 1024,

		DataDir: "data",
	}
}

func init() {
	createReadOnlyConstants()
}

// Get returns a copy of the Constant struct. Return by value so internal values cannot be
// inadvertently changed by callers.
func Get() Constants {
	return *readOnlyConstants
}
