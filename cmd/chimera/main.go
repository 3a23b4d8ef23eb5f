// chimera - accept SOCKS5 connections, route them by hostname to the right privacy-network
// back-end, and supervise those back-ends while running.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/thookham/chimera/internal/constants"
	"github.com/thookham/chimera/internal/facade"
	"github.com/thookham/chimera/internal/logbuffer"
	"github.com/thookham/chimera/internal/metrics"
	"github.com/thookham/chimera/internal/osutil"
	"github.com/thookham/chimera/internal/reporter"
	"github.com/thookham/chimera/internal/settings"
)

// Program-wide variables
var (
	consts = constants.Get()
	cfg    *config

	stdout io.Writer // All I/O goes via these writers
	stderr io.Writer

	startTime                = time.Now()
	mainStarted, mainStopped bool // Record state transitions thru main (used by tests)
	stopChannel              chan os.Signal
	flagSet                  *pflag.FlagSet
)

//////////////////////////////////////////////////////////////////////

func fatal(args ...interface{}) int {
	fmt.Fprint(stderr, "Fatal: ", consts.ProgramName, ": ")
	fmt.Fprintln(stderr, args...)

	return 1
}

func stopMain() {
	stopChannel <- syscall.SIGINT
}

//////////////////////////////////////////////////////////////////////
// main wrappers make it easy for test programs
//////////////////////////////////////////////////////////////////////

// mainInit resets everything such that mainExecute() can be called multiple times in one program
// execution. stopChannel is buffered as the reader may disappear if there is a fatal error and
// multiple writers may try and write to the channel and we don't want those writers to stall
// forever.
func mainInit(out io.Writer, err io.Writer) {
	cfg = &config{}
	stdout = out
	stderr = err
	mainStarted = false
	mainStopped = false
	stopChannel = make(chan os.Signal, 4) // All reasonable signals cause us to quit or stats report
	osutil.SignalNotify(stopChannel)
}

func main() {
	mainInit(os.Stdout, os.Stderr)
	os.Exit(mainExecute(os.Args))
}

func mainExecute(args []string) int {
	flagSet = pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	err := parseCommandLine(args)
	if err != nil {
		return 1 // Error already printed by the pflag package
	}
	if cfg.help {
		usage(stdout)
		return 0
	}
	if cfg.version {
		fmt.Fprintln(stdout, consts.ProgramName, "Version:", consts.Version)
		return 0
	}

	// Configuration file + environment. A configuration error is fatal; back-end start failures
	// later on degrade instead of stopping the run.

	scfg, err := settings.Load(cfg.configPath)
	if err != nil {
		return fatal(err)
	}
	if cfg.portSet {
		scfg.Server.Port = cfg.port
	}

	// Logging: logrus carries every component's output and the facade's log ring hangs off it
	// as a hook so get_logs always has the most recent material.

	logger := logrus.New()
	logger.SetOutput(stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	level := scfg.Server.LogLevel
	if cfg.verbose {
		level = "debug"
	}
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return fatal("log level:", err)
	}
	logger.SetLevel(parsedLevel)

	logRing := logbuffer.New(consts.LogRingSize)
	logger.AddHook(logRing)

	if cfg.gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			return fatal("gops agent:", err)
		}
		defer agent.Close()
	}
	if len(cfg.metricsAddr) > 0 {
		go func() {
			if err := metrics.Serve(cfg.metricsAddr); err != nil {
				logger.Errorf("metrics listener: %v", err)
			}
		}()
	}

	// Bring the aggregate up: every enabled back-end plus the SOCKS5 front door.

	enabled := scfg.EnabledBackends()
	tags := make([]string, 0, len(enabled))
	for _, b := range enabled {
		tags = append(tags, b.String())
	}

	if cfg.verbose {
		fmt.Fprintln(stdout, consts.ProgramName, consts.Version, "Starting:", strings.Join(tags, ", "))
		fmt.Fprintln(stdout, "Chain Mode:", scfg.ChainMode)
	}

	app := facade.New(scfg, logger, logRing)
	if err := app.StartDaemon(tags); err != nil {
		return fatal(err)
	}

	// Constrain the process via setuid/setgid/chroot. This is a no-op call if all parameters
	// are empty strings. The listener and any child processes are already up so privileged
	// ports and binaries have been dealt with.

	err = osutil.Constrain(cfg.setuidName, cfg.setgidName, cfg.chrootDir)
	if err != nil {
		app.StopDaemon()
		return fatal(err)
	}
	if cfg.verbose {
		fmt.Fprintf(stdout, "Constraints: %s\n", osutil.ConstraintReport())
	}

	// Loop forever giving periodic status reports and checking for a termination event.

	mainStarted = true // Tell testers that we're up and running
	nextStatusIn := nextInterval(time.Now(), cfg.statusInterval)

Running:
	for {
		select {
		case s := <-stopChannel:
			if osutil.IsSignalUSR1(s) {
				statusReport("User1", false, app)
				break
			}
			if cfg.verbose {
				fmt.Fprintln(stdout, "\nSignal", s)
			}
			break Running // All signals bar USR1 cause loop exit

		case <-time.After(nextStatusIn):
			if cfg.verbose {
				statusReport("Status", true, app)
			}
			nextStatusIn = nextInterval(time.Now(), cfg.statusInterval)
		}
	}

	app.StopDaemon()
	mainStopped = true

	if cfg.verbose {
		statusReport("Status", true, app) // One last report prior to exiting
		fmt.Fprintln(stdout, consts.ProgramName, consts.Version, "Exiting after", uptime())
	}

	return 0
}

// nextInterval calculates the duration to the modulo interval next time. If now is 00:01:17 and
// interval is 30s then return is 13s which is the duration to the next modulo of 00:01:30.
func nextInterval(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}

// uptime calculates how long this server has been running and returns print-friendly and
// granularity-appropriate representation of that duration.
func uptime() string {
	return time.Since(startTime).Truncate(time.Second).String()
}

// statusReport prints stats from all the facade's reporters plus the per-backend status map.
func statusReport(what string, resetCounters bool, app *facade.AppState) {
	fmt.Fprintln(stdout, "Status Up:", consts.ProgramName, consts.Version, uptime())

	var reporters []reporter.Reporter
	reporters = append(reporters, app.Reporters()...)
	for _, r := range reporters {
		reps := strings.Split(r.Report(resetCounters), "\n")
		for _, s := range reps {
			if len(s) > 0 {
				fmt.Fprintf(stdout, "%s %s: %s\n", what, r.Name(), s)
			}
		}
	}

	status := app.GetStatus()
	keys := make([]string, 0, len(status))
	for k := range status {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%t", k, status[k]))
	}
	fmt.Fprintf(stdout, "%s Backends: %s\n", what, strings.Join(parts, " "))
}
