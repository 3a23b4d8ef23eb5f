//go:build !windows

package osutil

import (
	"os"
	"os/signal"
	"syscall"
)

// SignalNotify routes the signals a daemon cares about to the supplied channel.
func SignalNotify(c chan os.Signal) {
	signal.Notify(c, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGUSR1)
}

// IsSignalUSR1 reports whether s is the status-report signal.
func IsSignalUSR1(s os.Signal) bool {
	return s == syscall.SIGUSR1
}
