// Package lock implements the cross-process agent lock (spec.md §4.G):
// a single PID-content lock file per project that makes the orchestrator
// a single writer for the project's lifetime, with staleness detection
// so a crashed orchestrator does not permanently wedge the project.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// FileName is the lock file's name within a project's .forge directory.
const FileName = "agent.lock"

// ErrAlreadyRunning is returned by Acquire when a live orchestrator
// already holds the lock for this project.
type ErrAlreadyRunning struct {
	PID int
}

func (e *ErrAlreadyRunning) Error() string {
	return fmt.Sprintf("orchestrator already running for this project (pid %d)", e.PID)
}

// Lock is an acquired project lock. Release removes the lock file.
type Lock struct {
	path string
}

// Acquire checks for an existing lock at <projectDir>/.forge/<FileName>.
// If present and its PID is alive and its working directory matches
// projectDir, Acquire refuses with ErrAlreadyRunning. Otherwise the lock
// is treated as stale, removed, and re-acquired with the current PID.
func Acquire(projectDir string) (*Lock, error) {
	dir := filepath.Join(projectDir, ".forge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := filepath.Join(dir, FileName)

	if existing, ok := readLock(path); ok {
		if isAlive(existing) && cwdMatches(existing, projectDir) {
			return nil, &ErrAlreadyRunning{PID: existing}
		}
		// Stale: owning process is gone, or it belongs to a different
		// project than the PID happens to still be alive for.
		_ = os.Remove(path)
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call once on clean shutdown;
// a crash leaves the file behind for the next Acquire to reclaim.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}

func readLock(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// isAlive probes liveness via signal 0, the standard way to check a PID
// exists without affecting it.
func isAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}

// cwdMatches reports whether pid's working directory matches projectDir.
// On platforms/processes where this cannot be determined, it
// conservatively returns true so a genuinely live competitor is never
// accidentally treated as stale.
func cwdMatches(pid int, projectDir string) bool {
	link := fmt.Sprintf("/proc/%d/cwd", pid)
	target, err := os.Readlink(link)
	if err != nil {
		return true
	}
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return true
	}
	return target == abs
}
