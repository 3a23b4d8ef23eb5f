package main

import (
	"fmt"
	"io"
	"text/template"
	"time"
)

// The "pflag" package is not tty aware so we've arbitrarily picked 100 columns as a conservative
// tty width for the usage output.

const usageMessageTemplate = `
NAME
          {{.ProgramName}} -- a unified SOCKS5 front door to privacy networks

SYNOPSIS
          {{.ProgramName}} [options]

DESCRIPTION
          {{.ProgramName}} presents one local SOCKS5 proxy ({{.RFC}} subset: CONNECT, no
          authentication) and routes each connection to the right privacy network by looking at
          the destination hostname. Point a browser or any SOCKS5-capable application at the
          listen address and .onion goes to Tor, .i2p to I2P, .loki to Lokinet, .nym to Nym,
          .bit to ZeroNet, .eth and .ipfs to the IPFS gateway, USK@/SSK@ keys and .freenet to
          Freenet, .gnu and .zkey to GNUnet, and hosts mentioning retroshare or tribler to their
          respective APIs. Everything else rides Tor.

          Alongside the front door, {{.ProgramName}} supervises the back-end daemons it fronts
          for: external binaries (tor, i2pd, lokinet, nym-socks5-client) are spawned with their
          output captured into the log, pre-existing daemons (IPFS, ZeroNet, Freenet,
          RetroShare, Tribler, GNUnet) are probed over their documented endpoints, and every
          back-end is health-checked every {{.ProbeInterval}} for the status surface.

          A missing or unreachable back-end is never fatal: it is logged, shows up as unhealthy
          in the status output, and the remaining routes keep working.

CHAINING
          The chain_mode configuration key sequences two back-ends into a multi-hop path.
          tor_over_nym starts Nym first, waits {{.ChainStartDelay}}, then starts Tor with its
          SOCKS traffic pushed through Nym. nym_over_tor starts Tor first, waits the same delay,
          then starts Nym with nym.upstream_provider set to Tor's SOCKS endpoint; that value is
          not passed on the nym-socks5-client command line. The delay is a fixed
          part of the contract - the underlying network must be listening before the dependent
          one dials through it.

CONFIGURATION
          Settings are read from a TOML file (default {{.ConfigDefaultPath}}), with environment
          variables layered on top using the prefix CHIMERA and the separator "__", e.g.
          CHIMERA__SERVER__PORT=9090. A missing configuration file runs on defaults; a malformed
          one, or an unrecognized CHIMERA__ variable, stops start-up. Back-end failures never do.

OPTIONS
          [-hv] [-p port] [-c config-file] [-i status-report-interval]

          [--gops] [--metrics-addr address]

          [--user userName] [--group groupName] [--chroot directory]

          [--version]

`

//////////////////////////////////////////////////////////////////////

func usage(out io.Writer) {
	tmpl, err := template.New("usage").Parse(usageMessageTemplate)
	if err != nil {
		panic(err) // We've messed up our template
	}
	err = tmpl.Execute(out, consts)
	if err != nil {
		panic(err) // We've messed up our template
	}
	flagSet.SetOutput(out)
	flagSet.PrintDefaults()
	fmt.Fprintln(out, "\nVersion:", consts.Version)
}

// parseCommandLine sets up the flags-to-config mapping and parses the supplied command line
// arguments. It starts from scratch each time to make it easier for test wrappers to use.
func parseCommandLine(args []string) error {
	flagSet.BoolVarP(&cfg.help, "help", "h", false, "Print usage message to Stdout then exit(0)")
	flagSet.BoolVarP(&cfg.verbose, "verbose", "v", false, "Verbose status and stats plus debug-level logging - otherwise the log level is server.log_level")

	flagSet.Uint16VarP(&cfg.port, "port", "p", 9050, "SOCKS5 listen `port` (overrides server.port from the config file)")
	flagSet.StringVarP(&cfg.configPath, "config", "c", consts.ConfigDefaultPath, "`path` to the TOML configuration file")
	flagSet.DurationVarP(&cfg.statusInterval, "status-interval", "i", time.Minute*15, "Periodic Status Report `interval`")

	// gops and metrics settings

	flagSet.BoolVar(&cfg.gops, "gops", false, "Start github.com/google/gops agent")
	flagSet.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on `address` (disabled when empty)")

	// Process Constraint parameters

	flagSet.StringVar(&cfg.setuidName, "user", "", "setuid `username` to constrain process after start-up (disabled for Linux)")
	flagSet.StringVar(&cfg.setgidName, "group", "", "setgid `groupname` to constrain process after start-up (disabled for Linux)")
	flagSet.StringVar(&cfg.chrootDir, "chroot", "", "chroot `directory` to constrain process after start-up")

	flagSet.BoolVar(&cfg.version, "version", false, "Print version and exit")

	err := flagSet.Parse(args[1:])
	cfg.portSet = flagSet.Changed("port")

	return err
}
