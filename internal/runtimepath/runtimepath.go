// Package runtimepath locates per-user runtime files such as the control
// socket and the single-instance lock.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	socketName = "xwbridge.sock"
	lockName   = "xwbridge.lock"
)

// Dir returns $XDG_RUNTIME_DIR, else /run/user/<uid> when it exists, else a
// private directory under /tmp that is created on demand.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}
	uid := strconv.Itoa(os.Getuid())
	if st, err := os.Stat(filepath.Join("/run/user", uid)); err == nil && st.IsDir() {
		return filepath.Join("/run/user", uid), nil
	}
	fallback := filepath.Join(os.TempDir(), "xwbridge-runtime-"+uid)
	if err := os.MkdirAll(fallback, 0o700); err != nil {
		return "", fmt.Errorf("create runtime dir %s: %w", fallback, err)
	}
	return fallback, nil
}

func inDir(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// SocketPath is where the daemon listens for control clients.
func SocketPath() (string, error) { return inDir(socketName) }

// LockPath is the single-instance lock file.
func LockPath() (string, error) { return inDir(lockName) }
