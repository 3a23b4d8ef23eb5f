//go:build linux

package osutil

// The Go runtime cannot apply setuid/setgid across all threads on Linux, so both are compiled
// out here and Constrain prints a warning instead. See golang/go#1435.
const (
	setuidAllowed = false
	setgidAllowed = false
)
