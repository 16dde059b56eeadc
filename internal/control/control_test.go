package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"go.klb.dev/simplecopy/internal/actions"
	"go.klb.dev/simplecopy/internal/clip"
	"go.klb.dev/simplecopy/internal/feedback"
	"go.klb.dev/simplecopy/internal/host/hosttest"
	"go.klb.dev/simplecopy/internal/loop"
	"go.klb.dev/simplecopy/internal/retrieve"
	"go.klb.dev/simplecopy/internal/textnorm"
)

type fakeBackend struct {
	mu     sync.Mutex
	taps   []string
	append bool
}

func (b *fakeBackend) Tap(_ context.Context, gesture string) error {
	if gesture != "control+shift+a" {
		return fmt.Errorf("tap %s: %w", gesture, actions.ErrUnknownGesture)
	}
	b.mu.Lock()
	b.taps = append(b.taps, gesture)
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) ToggleAppend(context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.append = !b.append
	return b.append, nil
}

func (b *fakeBackend) Status(context.Context) (map[string]any, error) {
	return map[string]any{"host": "test", "enabled": true, "taps": uint64(3)}, nil
}

func (b *fakeBackend) tapped() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.taps...)
}

func startServer(t *testing.T, b Backend) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, NewService(b)) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///"+addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func TestGRPC(t *testing.T) {
	b := &fakeBackend{}
	c := dial(t, startServer(t, b))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Tap(ctx, "control+shift+a"))
	assert.Equal(t, []string{"control+shift+a"}, b.tapped())

	err := c.Tap(ctx, "alt+q")
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = c.Tap(ctx, "  ")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	on, err := c.ToggleAppend(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	on, err = c.ToggleAppend(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	m := st.AsMap()
	assert.Equal(t, "test", m["host"])
	assert.Equal(t, true, m["enabled"])
	assert.Equal(t, float64(3), m["taps"])
}

func TestHTTPGateway(t *testing.T) {
	b := &fakeBackend{}
	base := "http://" + startServer(t, b)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Post(base+"/v1/gestures/control+shift+a:tap", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"control+shift+a"}, b.tapped())

	resp, err = client.Post(base+"/v1/gestures/alt+q:tap", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = client.Post(base+"/v1/append:toggle", "application/json", nil)
	require.NoError(t, err)
	var toggled bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&toggled))
	resp.Body.Close()
	assert.True(t, toggled)

	resp, err = client.Get(base + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, "test", m["host"])
}

func TestServeReturnsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, NewService(&fakeBackend{})) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func newLoopBackend(t *testing.T) (*LoopBackend, context.CancelFunc) {
	t.Helper()
	l := loop.New(0)
	h := &hosttest.Host{}
	cb := clip.NewMemory("")
	chain := retrieve.New(h, cb, retrieve.Config{LineEnding: textnorm.LF})
	p := actions.New(h, chain, &feedback.Recorder{}, l, actions.DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(cancel)
	return &LoopBackend{Loop: l, Plugin: p, Version: "v0.0.0-test"}, cancel
}

func TestLoopBackend(t *testing.T) {
	b, _ := newLoopBackend(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, b.Tap(ctx, "Shift+Control+A"))
	assert.ErrorIs(t, b.Tap(ctx, "alt+q"), actions.ErrUnknownGesture)

	on, err := b.ToggleAppend(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	m, err := b.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test", m["host"])
	assert.Equal(t, false, m["append"])
	assert.Equal(t, "v0.0.0-test", m["version"])
	assert.Equal(t, uint64(1), m["taps"])
	assert.Equal(t, []any{"control+shift+a"}, m["armed"])
	assert.Contains(t, m["gestures"], "control+shift+c")
	assert.Equal(t, "500ms", m["settle_window"])
}

func TestLoopBackendStopped(t *testing.T) {
	b, stop := newLoopBackend(t)
	stop()
	<-b.Loop.Done()

	err := b.Tap(context.Background(), "control+shift+a")
	assert.ErrorIs(t, err, loop.ErrStopped)

	_, err = NewService(b).ToggleAppend(context.Background(), nil)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
