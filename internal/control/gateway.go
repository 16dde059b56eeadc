package control

import (
	"context"
	"net"
	"net/http"
	"time"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// NewGateway returns an HTTP/JSON mux for srv:
//
//	POST /v1/gestures/{gesture}:tap
//	POST /v1/append:toggle
//	GET  /v1/status
func NewGateway(srv ControlServer) (*gwruntime.ServeMux, error) {
	mux := gwruntime.NewServeMux(
		gwruntime.WithMarshalerOption(gwruntime.MIMEWildcard, &gwruntime.JSONPb{
			MarshalOptions: protojson.MarshalOptions{EmitUnpopulated: true},
		}),
	)

	routes := []struct {
		method, pattern string
		call            func(context.Context, map[string]string) (proto.Message, error)
	}{
		{http.MethodPost, "/v1/gestures/{gesture}:tap", func(ctx context.Context, p map[string]string) (proto.Message, error) {
			return srv.Tap(ctx, wrapperspb.String(p["gesture"]))
		}},
		{http.MethodPost, "/v1/append:toggle", func(ctx context.Context, _ map[string]string) (proto.Message, error) {
			return srv.ToggleAppend(ctx, &emptypb.Empty{})
		}},
		{http.MethodGet, "/v1/status", func(ctx context.Context, _ map[string]string) (proto.Message, error) {
			return srv.Status(ctx, &emptypb.Empty{})
		}},
	}
	for _, rt := range routes {
		call := rt.call
		err := mux.HandlePath(rt.method, rt.pattern, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
			ctx := gwruntime.NewServerMetadataContext(r.Context(), gwruntime.ServerMetadata{})
			_, out := gwruntime.MarshalerForRequest(mux, r)
			resp, err := call(ctx, params)
			if err != nil {
				gwruntime.HTTPError(ctx, mux, out, w, r, err)
				return
			}
			gwruntime.ForwardResponseMessage(ctx, mux, out, w, r, resp)
		})
		if err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// serveHTTPGateway runs an HTTP/1.1 server on ln serving the gateway mux.
func serveHTTPGateway(ln net.Listener, mux *gwruntime.ServeMux) (*http.Server, <-chan error) {
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	return srv, errc
}
