//go:build !windows

package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// umaskMu serializes umask changes; the mask is process-wide.
var umaskMu sync.Mutex

func socketPath() string {
	// Linux: prefer XDG_RUNTIME_DIR
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "simplecopy.sock")
	}
	return filepath.Join(os.TempDir(), "simplecopy.sock")
}

func listenIPC(path string) (net.Listener, error) {
	// Remove stale socket from a previous (crashed) run.
	_ = os.Remove(path)
	// The socket is created 0600 rather than tightened afterwards.
	umaskMu.Lock()
	old := syscall.Umask(0o177)
	ln, err := net.Listen("unix", path)
	syscall.Umask(old)
	umaskMu.Unlock()
	if err != nil {
		return nil, err
	}
	return ln, nil
}

func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	return d.DialContext(ctx, "unix", path)
}
