// Package lockfile keeps two vidfetch processes from writing the same
// partial download. A lock is a file holding the owner's PID; locks left
// behind by dead processes are taken over.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrHeld is returned when a live process owns the lock.
var ErrHeld = errors.New("lock held by another process")

type LockFile struct {
	path string
	file *os.File
}

// Acquire creates path exclusively. A stale lock (dead or unreadable owner)
// is removed and acquisition retried once.
func Acquire(path string) (*LockFile, error) {
	l, err := create(path)
	if err == nil || !os.IsExist(err) {
		return l, err
	}
	if err := checkStale(path); err != nil {
		return nil, err
	}
	l, err = create(path)
	if os.IsExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrHeld, path)
	}
	return l, err
}

func create(path string) (*LockFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock %s: %w", path, err)
	}
	return &LockFile{path: path, file: f}, nil
}

// checkStale removes path when its owner is gone, or reports who holds it.
func checkStale(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("lock %s exists but cannot be read: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && pid != os.Getpid() && processExists(pid) {
		return fmt.Errorf("%w (PID %d): %s", ErrHeld, pid, path)
	}
	if err == nil && pid == os.Getpid() {
		return fmt.Errorf("%w (this process): %s", ErrHeld, path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale lock %s: %w", path, err)
	}
	return nil
}

func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix FindProcess always succeeds; signal 0 checks liveness.
	err = p.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return false
	}
	// EPERM: it exists, we just may not signal it.
	return true
}

// Release closes and removes the lock file. Safe to call twice.
func (l *LockFile) Release() error {
	if l == nil {
		return nil
	}
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock %s: %w", l.path, err)
	}
	return nil
}

func (l *LockFile) Path() string { return l.path }
