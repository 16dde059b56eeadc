// Package atspi is a host.Host backed by the AT-SPI accessibility bus used
// by GNOME, KDE and the major browsers on Linux. The focused object is
// tracked from object:state-changed:focused events; text selections, the
// document URL and hyperlink targets are read from the accessible itself.
//
// AT-SPI has no key injection, so SendKeys is delegated to a KeySender
// (normally the x11 host).
package atspi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"go.klb.dev/simplecopy/internal/host"
)

const (
	a11yBusName = "org.a11y.Bus"
	a11yBusPath = dbus.ObjectPath("/org/a11y/bus")

	registryName = "org.a11y.atspi.Registry"
	registryPath = dbus.ObjectPath("/org/a11y/atspi/registry")
	nullPath     = dbus.ObjectPath("/org/a11y/atspi/null")

	ifaceAccessible = "org.a11y.atspi.Accessible"
	ifaceText       = "org.a11y.atspi.Text"
	ifaceDocument   = "org.a11y.atspi.Document"
	ifaceHyperlink  = "org.a11y.atspi.Hyperlink"
	ifaceObject     = "org.a11y.atspi.Event.Object"

	focusEvent  = "object:state-changed:focused"
	callTimeout = time.Second
	maxDepth    = 32
)

// KeySender injects key combinations.
type KeySender interface {
	SendKeys(ctx context.Context, combo string) error
}

// ref addresses an accessible: the owning application's bus name and the
// object path within it.
type ref struct {
	bus  string
	path dbus.ObjectPath
}

func (r ref) null() bool { return r.bus == "" || r.path == "" || r.path == nullPath }

// Host tracks focus on the accessibility bus.
type Host struct {
	conn *dbus.Conn
	keys KeySender

	mu    sync.Mutex
	focus ref

	signals chan *dbus.Signal
	done    chan struct{}
}

// New connects to the accessibility bus and starts tracking focus. keys may
// be nil, in which case SendKeys returns host.ErrUnsupported.
func New(keys KeySender) (*Host, error) {
	addr, err := busAddress()
	if err != nil {
		return nil, err
	}
	conn, err := dbus.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("atspi: connect %s: %w", addr, err)
	}

	h := &Host{
		conn:    conn,
		keys:    keys,
		signals: make(chan *dbus.Signal, 32),
		done:    make(chan struct{}),
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(ifaceObject),
		dbus.WithMatchMember("StateChanged"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("atspi: add match: %w", err)
	}
	// Applications only emit events somebody registered for.
	reg := conn.Object(registryName, registryPath)
	if call := reg.Call(registryName+".RegisterEvent", 0, focusEvent); call.Err != nil {
		slog.Warn("atspi: event registration failed", "event", focusEvent, "err", call.Err)
	}
	conn.Signal(h.signals)
	go h.watch()
	slog.Debug("atspi: connected", "bus", addr)
	return h, nil
}

// busAddress asks the session bus where the accessibility bus lives.
func busAddress() (string, error) {
	sess, err := dbus.SessionBus()
	if err != nil {
		return "", fmt.Errorf("atspi: %w: session bus: %v", host.ErrUnsupported, err)
	}
	var addr string
	if err := sess.Object(a11yBusName, a11yBusPath).Call(a11yBusName+".GetAddress", 0).Store(&addr); err != nil {
		return "", fmt.Errorf("atspi: %w: %v", host.ErrUnsupported, err)
	}
	if addr == "" {
		return "", fmt.Errorf("atspi: %w: empty bus address", host.ErrUnsupported)
	}
	return addr, nil
}

func (h *Host) watch() {
	for {
		select {
		case <-h.done:
			return
		case sig, ok := <-h.signals:
			if !ok {
				return
			}
			if r, ok := focusGained(sig); ok {
				h.mu.Lock()
				h.focus = r
				h.mu.Unlock()
			}
		}
	}
}

// focusGained reports whether sig is a "focused" state change that gained
// focus, and which object it was for.
func focusGained(sig *dbus.Signal) (ref, bool) {
	if sig == nil || sig.Name != ifaceObject+".StateChanged" || len(sig.Body) < 2 {
		return ref{}, false
	}
	kind, _ := sig.Body[0].(string)
	gained, _ := sig.Body[1].(int32)
	if kind != "focused" || gained != 1 {
		return ref{}, false
	}
	r := ref{bus: sig.Sender, path: sig.Path}
	return r, !r.null()
}

func (h *Host) Name() string { return "atspi" }

// Focus returns the most recently focused accessible.
func (h *Host) Focus(context.Context) (host.Node, error) {
	h.mu.Lock()
	r := h.focus
	h.mu.Unlock()
	if r.null() {
		return nil, host.ErrNoFocus
	}
	return h.node(r), nil
}

// Navigator is the focus; there is no separate review cursor.
func (h *Host) Navigator(ctx context.Context) (host.Node, error) { return h.Focus(ctx) }

// DocumentURL returns the DocURL attribute of the document that contains
// the focus.
func (h *Host) DocumentURL(ctx context.Context) (string, error) {
	n, err := h.Focus(ctx)
	if err != nil {
		return "", err
	}
	a := n.(*accessible)
	for i := 0; a != nil && a.Role() != host.RoleDocument; i++ {
		if i == maxDepth {
			return "", host.ErrUnsupported
		}
		a = a.parent()
	}
	if a == nil {
		return "", host.ErrUnsupported
	}
	var u string
	if err := a.call(ctx, ifaceDocument+".GetAttributeValue", "DocURL").Store(&u); err != nil {
		return "", unsupported(err)
	}
	if u = strings.TrimSpace(u); u == "" {
		return "", host.ErrUnsupported
	}
	return u, nil
}

// SendKeys delegates to the KeySender.
func (h *Host) SendKeys(ctx context.Context, combo string) error {
	if h.keys == nil {
		return host.ErrUnsupported
	}
	return h.keys.SendKeys(ctx, combo)
}

// Close stops focus tracking and closes the bus connection.
func (h *Host) Close() error {
	select {
	case <-h.done:
		return nil
	default:
	}
	close(h.done)
	h.conn.RemoveSignal(h.signals)
	return h.conn.Close()
}

func (h *Host) node(r ref) *accessible {
	return &accessible{h: h, ref: r, obj: h.conn.Object(r.bus, r.path)}
}

// accessible is a host.Node for one AT-SPI object.
type accessible struct {
	h   *Host
	ref ref
	obj dbus.BusObject
}

func (a *accessible) call(ctx context.Context, method string, args ...any) *dbus.Call {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return a.obj.CallWithContext(ctx, method, 0, args...)
}

func (a *accessible) property(name string) (any, error) {
	var v dbus.Variant
	err := a.call(context.Background(), "org.freedesktop.DBus.Properties.Get", ifaceAccessible, name).Store(&v)
	if err != nil {
		return nil, err
	}
	return v.Value(), nil
}

func (a *accessible) Role() host.Role {
	var role uint32
	if err := a.call(context.Background(), ifaceAccessible+".GetRole").Store(&role); err != nil {
		return host.RoleUnknown
	}
	return mapRole(role)
}

func (a *accessible) Name() string {
	v, err := a.property("Name")
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Value returns the hyperlink target for links.
func (a *accessible) Value() (string, error) {
	var uri string
	if err := a.call(context.Background(), ifaceHyperlink+".GetURI", int32(0)).Store(&uri); err != nil {
		return "", unsupported(err)
	}
	return uri, nil
}

func (a *accessible) Editable() bool {
	var words []uint32
	if err := a.call(context.Background(), ifaceAccessible+".GetState").Store(&words); err != nil {
		return false
	}
	return hasState(words, stateEditable)
}

func (a *accessible) Parent() host.Node {
	if p := a.parent(); p != nil {
		return p
	}
	return nil
}

func (a *accessible) parent() *accessible {
	if a.ref.path == nullPath {
		return nil
	}
	v, err := a.property("Parent")
	if err != nil {
		return nil
	}
	r, ok := parseRef(v)
	if !ok || r.null() || r == a.ref {
		return nil
	}
	return a.h.node(r)
}

func (a *accessible) AppName() string {
	call := a.call(context.Background(), ifaceAccessible+".GetApplication")
	if call.Err != nil || len(call.Body) == 0 {
		return ""
	}
	r, ok := parseRef(call.Body[0])
	if !ok || r.null() {
		return ""
	}
	return strings.ToLower(a.h.node(r).Name())
}

// SelectionRange returns the first text selection of the object.
func (a *accessible) SelectionRange() (host.TextRange, error) {
	ctx := context.Background()
	var n int32
	if err := a.call(ctx, ifaceText+".GetNSelections").Store(&n); err != nil {
		return nil, unsupported(err)
	}
	if n <= 0 {
		return selection(""), nil
	}
	var start, end int32
	if err := a.call(ctx, ifaceText+".GetSelection", int32(0)).Store(&start, &end); err != nil {
		return nil, err
	}
	if end <= start {
		return selection(""), nil
	}
	var text string
	if err := a.call(ctx, ifaceText+".GetText", start, end).Store(&text); err != nil {
		return nil, err
	}
	return selection(text), nil
}

type selection string

func (s selection) Collapsed() bool { return s == "" }
func (s selection) ClipboardText() (string, error) { return string(s), nil }

// parseRef decodes an AT-SPI object reference, a D-Bus (so) struct.
func parseRef(v any) (ref, bool) {
	fields, ok := v.([]any)
	if !ok || len(fields) != 2 {
		return ref{}, false
	}
	bus, ok1 := fields[0].(string)
	path, ok2 := fields[1].(dbus.ObjectPath)
	if !ok1 || !ok2 {
		return ref{}, false
	}
	return ref{bus: bus, path: path}, true
}

// unsupported maps "no such interface/method" replies to host.ErrUnsupported.
func unsupported(err error) error {
	var name string
	var de dbus.Error
	var dep *dbus.Error
	switch {
	case errors.As(err, &de):
		name = de.Name
	case errors.As(err, &dep):
		name = dep.Name
	}
	switch name {
	case "org.freedesktop.DBus.Error.UnknownMethod",
		"org.freedesktop.DBus.Error.UnknownInterface",
		"org.freedesktop.DBus.Error.NotSupported":
		return fmt.Errorf("%w: %v", host.ErrUnsupported, err)
	}
	return err
}
