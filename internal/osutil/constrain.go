// Package osutil abstracts the OS interactions of a long-running network daemon: dropping
// privileges once sockets and child processes are up, and normalizing signal handling across
// platforms.
package osutil

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// credentials is the numeric identity Constrain downgrades to. Negative means "leave as is".
type credentials struct {
	uid, gid int
}

// Constrain drops the privileges the daemon no longer needs after start-up: optionally chroot
// into chrootDir, then switch to groupName/userName. Each parameter is skipped when empty.
//
// Sequencing is the whole point. Names resolve to ids up front while passwd/group are still
// reachable, the chroot happens while we can still enter it, supplementary groups go while the
// uid still lets us shed them, and the uid switch comes last because it makes the rest
// irreversible.
//
// On Linux the uid/gid switches are compiled out: the Go runtime cannot apply them to every
// thread (golang/go#1435), so the daemon says so and stays privileged rather than pretending.
func Constrain(userName, groupName, chrootDir string) error {
	creds, err := resolveCredentials(userName, groupName)
	if err != nil {
		return err
	}

	if chrootDir != "" {
		if err := enterChroot(chrootDir); err != nil {
			return err
		}
	}

	if creds.gid >= 0 {
		if !setgidAllowed {
			fmt.Println("osutil: setgid unavailable on this platform, keeping current groups")
		} else {
			if err := unix.Setgroups([]int{}); err != nil {
				return fmt.Errorf("osutil: shedding supplementary groups: %w", err)
			}
			if err := unix.Setgid(creds.gid); err != nil {
				return fmt.Errorf("osutil: setgid %s (%d): %w", groupName, creds.gid, err)
			}
		}
	}

	if creds.uid >= 0 {
		if !setuidAllowed {
			fmt.Println("osutil: setuid unavailable on this platform, process stays privileged")
		} else if err := unix.Setuid(creds.uid); err != nil {
			return fmt.Errorf("osutil: setuid %s (%d): %w", userName, creds.uid, err)
		}
	}

	return nil
}

// resolveCredentials turns symbolic names into numeric ids, leaving -1 for absent parameters.
func resolveCredentials(userName, groupName string) (credentials, error) {
	creds := credentials{uid: -1, gid: -1}

	if userName != "" {
		u, err := user.Lookup(userName)
		if err != nil {
			return creds, fmt.Errorf("osutil: user %s: %w", userName, err)
		}
		creds.uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return creds, fmt.Errorf("osutil: non-numeric uid %q for %s: %w", u.Uid, userName, err)
		}
	}

	if groupName != "" {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return creds, fmt.Errorf("osutil: group %s: %w", groupName, err)
		}
		creds.gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return creds, fmt.Errorf("osutil: non-numeric gid %q for %s: %w", g.Gid, groupName, err)
		}
	}

	return creds, nil
}

// enterChroot moves the process into dir and re-roots there. The chdir-first ordering means a
// dir we cannot even enter fails before the irreversible unix.Chroot.
func enterChroot(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("osutil: chroot %s: %w", dir, err)
	}
	if err := unix.Chroot(dir); err != nil {
		return fmt.Errorf("osutil: chroot %s: %w", dir, err)
	}
	if err := os.Chdir("/"); err != nil {
		return fmt.Errorf("osutil: chroot %s: entering new root: %w", dir, err)
	}

	return nil
}

// ConstraintReport returns a printable uid/gid/groups/cwd line, normally logged right after
// Constrain() so the operator can see what the process ended up as.
func ConstraintReport() string {
	groups, _ := os.Getgroups()
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = strconv.Itoa(g)
	}
	cwd, _ := os.Getwd()

	return fmt.Sprintf("uid=%d gid=%d groups=%s cwd=%s",
		os.Getuid(), os.Getgid(), strings.Join(parts, ","), cwd)
}
