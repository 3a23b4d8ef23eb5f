package main

import (
	"time"
)

type config struct {
	gops    bool
	help    bool
	verbose bool
	version bool

	configPath string // chimera.toml location (-c)
	port       uint16 // SOCKS5 listen port (-p); overrides server.port when set
	portSet    bool   // Whether -p appeared on the command line

	statusInterval time.Duration
	metricsAddr    string // Prometheus listener, disabled when empty

	setuidName, setgidName, chrootDir string // Process constraint settings
}
