// Package control implements the daemon's control surface: a small gRPC
// service, an HTTP/JSON gateway for it, and the listener multiplexing that
// serves both on the local IPC socket.
//
// The service is described by hand over protobuf well-known types, so no
// generated code is needed:
//
//	rpc Tap(google.protobuf.StringValue)      returns (google.protobuf.Empty)
//	rpc ToggleAppend(google.protobuf.Empty)   returns (google.protobuf.BoolValue)
//	rpc Status(google.protobuf.Empty)         returns (google.protobuf.Struct)
package control

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/simplecopy/internal/actions"
	"go.klb.dev/simplecopy/internal/loop"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "simplecopy.v1.Control"

// Full method names.
const (
	MethodTap          = "/" + ServiceName + "/Tap"
	MethodToggleAppend = "/" + ServiceName + "/ToggleAppend"
	MethodStatus       = "/" + ServiceName + "/Status"
)

// ControlServer is the server API of the Control service.
type ControlServer interface {
	Tap(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	ToggleAppend(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// Backend is what the service drives.
type Backend interface {
	Tap(ctx context.Context, gesture string) error
	ToggleAppend(ctx context.Context) (bool, error)
	Status(ctx context.Context) (map[string]any, error)
}

// Service implements ControlServer on top of a Backend.
type Service struct {
	b Backend
}

// NewService returns a Service backed by b.
func NewService(b Backend) *Service {
	return &Service{b: b}
}

// Tap implements Control.Tap.
func (s *Service) Tap(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	gesture := strings.TrimSpace(req.GetValue())
	if gesture == "" {
		return nil, status.Error(codes.InvalidArgument, "gesture is required")
	}
	if err := s.b.Tap(ctx, gesture); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// ToggleAppend implements Control.ToggleAppend.
func (s *Service) ToggleAppend(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	on, err := s.b.ToggleAppend(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bool(on), nil
}

// Status implements Control.Status.
func (s *Service) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	m, err := s.b.Status(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		slog.Error("status encoding failed", "err", err)
		return nil, status.Error(codes.Internal, "status encoding failed")
	}
	return st, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, actions.ErrUnknownGesture):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, loop.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// ServiceDesc describes the Control service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Tap", Handler: tapHandler},
		{MethodName: "ToggleAppend", Handler: toggleAppendHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "simplecopy/v1/control.proto",
}

// Register adds srv to s.
func Register(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func tapHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Tap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodTap}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Tap(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func toggleAppendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).ToggleAppend(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodToggleAppend}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).ToggleAppend(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func statusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodStatus}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Status(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the Control service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a Client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Tap sends one tap of gesture.
func (c *Client) Tap(ctx context.Context, gesture string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, MethodTap, wrapperspb.String(gesture), new(emptypb.Empty), opts...)
}

// ToggleAppend flips the append switch and returns its new state.
func (c *Client) ToggleAppend(ctx context.Context, opts ...grpc.CallOption) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, MethodToggleAppend, new(emptypb.Empty), out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodStatus, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
