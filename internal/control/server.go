package control

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
)

const shutdownTimeout = 2 * time.Second

// Serve answers gRPC and HTTP/JSON control requests on ln until ctx is
// cancelled. Both protocols share the listener: HTTP/2 connections that
// announce application/grpc go to the gRPC server, HTTP/1 goes to the
// gateway.
func Serve(ctx context.Context, ln net.Listener, srv ControlServer) error {
	gw, err := NewGateway(srv)
	if err != nil {
		return err
	}

	m := cmux.New(ln)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.HTTP1Fast())

	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary))
	Register(gs, srv)

	grpcErr := make(chan error, 1)
	go func() { grpcErr <- gs.Serve(grpcL) }()
	hs, httpErr := serveHTTPGateway(httpL, gw)
	muxErr := make(chan error, 1)
	go func() { muxErr <- m.Serve() }()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-grpcErr:
	case serveErr = <-httpErr:
	case serveErr = <-muxErr:
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = hs.Shutdown(sctx)
	gs.Stop()
	_ = ln.Close()

	if ctx.Err() != nil || isClosed(serveErr) {
		return nil
	}
	return serveErr
}

func isClosed(err error) bool {
	return err == nil ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, http.ErrServerClosed) ||
		errors.Is(err, grpc.ErrServerStopped) ||
		errors.Is(err, cmux.ErrListenerClosed)
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		slog.Debug("control call failed", "method", info.FullMethod, "dur", time.Since(start), "err", err)
	} else {
		slog.Debug("control call", "method", info.FullMethod, "dur", time.Since(start))
	}
	return resp, err
}
