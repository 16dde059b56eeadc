package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/simplecopy/internal/control"
	"go.klb.dev/simplecopy/internal/ipc"
)

const requestTimeout = 3 * time.Second

// dialControl connects to the running daemon over the IPC socket. No auth
// is needed; the socket is local and owner-restricted by the OS.
func dialControl() (*control.Client, func(), error) {
	if !ipc.IsRunning() {
		return nil, nil, fmt.Errorf("%w (socket %s); start it with \"simplecopy run\"", ipc.ErrNotRunning, ipc.SocketPath())
	}
	conn, err := ipc.DialGRPC()
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	return control.NewClient(conn), func() { _ = conn.Close() }, nil
}

// withControl runs f against the daemon with the standard request timeout.
func withControl(f func(ctx context.Context, c *control.Client) error) error {
	c, closeConn, err := dialControl()
	if err != nil {
		return err
	}
	defer closeConn()
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return rpcError(f(ctx, c))
}

// rpcError turns a gRPC status into a plain CLI error.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("no binding: %s", st.Message())
	case codes.Unavailable:
		return fmt.Errorf("daemon unavailable: %s", st.Message())
	default:
		return errors.New(st.Message())
	}
}
