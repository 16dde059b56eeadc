//go:build windows

package ipc

import (
	"context"
	"net"

	winio "github.com/Microsoft/go-winio"
)

const pipeName = `\\.\pipe\simplecopy`

func socketPath() string { return pipeName }

func listenIPC(path string) (net.Listener, error) {
	// Owner-only access: SYSTEM, administrators and the creating user.
	return winio.ListenPipe(path, &winio.PipeConfig{
		SecurityDescriptor: "D:P(A;;GA;;;SY)(A;;GA;;;BA)(A;;GA;;;OW)",
	})
}

func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return winio.DialPipeContext(ctx, path)
}
