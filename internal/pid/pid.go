// Package pid guards long-running modes against a second instance.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/amdmetrics/internal/errors"
)

const DefaultName = "amdmetrics.pid"

// File is a PID file at Path.
type File struct {
	Path string
}

// New returns the PID file name under the temp directory.
func New(name string) File {
	if name == "" {
		name = DefaultName
	}

	return File{Path: filepath.Join(os.TempDir(), name)}
}

// Write writes the current process ID, refusing while the recorded process
// is still alive. A stale or unreadable file is overwritten.
func (f File) Write() error {
	errFactory := errors.New()

	if data, err := os.ReadFile(f.Path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && running(pid) {
			return errFactory.WithData(errors.ErrAlreadyRunning, struct {
				Path string
				PID  int
			}{
				Path: f.Path,
				PID:  pid,
			})
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(f.Path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func (f File) Remove() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

func running(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
