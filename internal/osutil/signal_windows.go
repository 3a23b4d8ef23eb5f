//go:build windows

package osutil

import (
	"os"
	"os/signal"
	"syscall"
)

// SignalNotify routes the signals a daemon cares about to the supplied channel. Windows has no
// USR1, so only the termination set is wired.
func SignalNotify(c chan os.Signal) {
	signal.Notify(c, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)
}

// IsSignalUSR1 always returns false on Windows.
func IsSignalUSR1(s os.Signal) bool {
	return false
}
