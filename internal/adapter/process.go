package adapter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// process wraps one supervised child: spawn with line-oriented capture of stdout/stderr, a
// liveness flag maintained by the reaper goroutine, and kill-and-reap on stop. The mutex is held
// only across field transitions, never while waiting on the child.
type process struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	exited bool
	done   chan struct{} // Closed by the reaper once the child is gone
}

// alive reports whether a child was spawned and has not yet been reaped.
func (t *process) alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && !t.exited
}

// spawn launches binary with args. Each stdout line is logged at info, each stderr line at warn,
// prefixed with the back-end tag the way the daemons' own log files are usually tailed. The
// reaper goroutine waits for the child and flips the liveness flag when it exits for any reason.
func (t *process) spawn(tag, binary string, args []string, log *logrus.Logger) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd != nil && !t.exited {
		return nil // Already running
	}

	cmd := exec.Command(binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: stdout pipe: %w", tag, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%s: stderr pipe: %w", tag, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: spawn: %w", tag, err)
	}

	t.cmd = cmd
	t.exited = false
	t.done = make(chan struct{})
	done := t.done

	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		capture(stdout, func(line string) { log.Infof("[%s] %s", tag, line) })
	}()
	go func() {
		defer pumps.Done()
		capture(stderr, func(line string) { log.Warnf("[%s] %s", tag, line) })
	}()

	go func() { // Reaper: Wait only after the pipe pumps drain
		pumps.Wait()
		err := cmd.Wait()

		t.mu.Lock()
		t.exited = true
		t.mu.Unlock()
		close(done)

		if err != nil {
			log.Warnf("[%s] exited: %v", tag, err)
		} else {
			log.Debugf("[%s] exited", tag)
		}
	}()

	return nil
}

// stop kills the child if one is live and waits for the reaper so that a returned stop means no
// process handle remains.
func (t *process) stop() error {
	t.mu.Lock()
	cmd, exited, done := t.cmd, t.exited, t.done
	t.mu.Unlock()

	if cmd == nil || exited || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-done

	return nil
}

func capture(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		emit(scanner.Text())
	}
}

// binaryPresent checks the configured binary path and logs the standard skip warning when the
// back-end simply isn't installed.
func binaryPresent(tag, path string, log *logrus.Logger) bool {
	if _, err := os.Stat(path); err != nil {
		log.Warnf("%s binary not found at %s - skipping %s start", tag, path, tag)
		return false
	}

	return true
}

// ensureDataDir creates data/<name> for back-ends that keep state on disk.
func ensureDataDir(name string) (string, error) {
	dir := filepath.Join("data", name)

	return dir, os.MkdirAll(dir, 0o755)
}
