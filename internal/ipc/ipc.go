// Package ipc provides the local control channel between the simplecopy
// daemon and its CLI sub-commands (tap, toggle-append, status). The daemon
// serves the control service on a Unix domain socket, or a named pipe on
// Windows; the CLI dials it with Dial or DialGRPC.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// EnvSocket overrides the socket path.
const EnvSocket = "SIMPLECOPY_SOCKET"

// ErrNotRunning is returned by Dial when no daemon is listening.
var ErrNotRunning = errors.New("simplecopy daemon is not running")

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux:   $XDG_RUNTIME_DIR/simplecopy.sock, else $TMPDIR/simplecopy.sock
//   - macOS:   $TMPDIR/simplecopy.sock
//   - Windows: \\.\pipe\simplecopy
//
// $SIMPLECOPY_SOCKET overrides all of these.
func SocketPath() string {
	if s := os.Getenv(EnvSocket); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a daemon appears to be listening on the IPC
// socket. It does a dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := dialIPC(context.Background(), SocketPath())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on the IPC socket. A socket left behind by a
// crashed daemon is removed; a live one makes Listen fail.
func Listen() (net.Listener, error) {
	path := SocketPath()
	if IsRunning() {
		return nil, fmt.Errorf("listen %s: another daemon is already running", path)
	}
	return listenIPC(path)
}

// Dial connects to the daemon's IPC socket.
func Dial(ctx context.Context) (net.Conn, error) {
	c, err := dialIPC(ctx, SocketPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return c, nil
}

// DialGRPC returns a client connection to the daemon's control service. No
// transport security is used; the socket is local and owner-restricted.
func DialGRPC() (*grpc.ClientConn, error) {
	return grpc.NewClient(
		"passthrough:///simplecopy",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return Dial(ctx)
		}),
	)
}

const dialTimeout = 2 * time.Second
