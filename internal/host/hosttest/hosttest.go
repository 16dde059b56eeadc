// Package hosttest provides an in-memory accessibility tree and a recording
// Host for tests.
package hosttest

import (
	"context"
	"sync"

	"go.klb.dev/simplecopy/internal/host"
)

// Node is a configurable in-memory host.Node. Capabilities that are left
// unset report host.ErrUnsupported.
type Node struct {
	NodeRole     host.Role
	NodeName     string
	NodeValue    string
	NodeEditable bool
	App          string
	Up           *Node

	// Selection is the node's text range. Nil means the node has no text
	// interface.
	Selection *Range
	// SelectionErr is returned by SelectionRange when set.
	SelectionErr error

	// Interceptor is returned by TreeInterceptor.
	Interceptor *Interceptor

	AutoValue string
	AutoID    string
	Legacy    string
	ValueErr  error
	LegacyErr error
}

// Chain links nodes so that each one's Up is the next, and returns the first.
func Chain(nodes ...*Node) *Node {
	for i := 0; i < len(nodes)-1; i++ {
		nodes[i].Up = nodes[i+1]
	}
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func (n *Node) Role() host.Role { return n.NodeRole }
func (n *Node) Name() string    { return n.NodeName }
func (n *Node) Editable() bool  { return n.NodeEditable }
func (n *Node) AppName() string { return n.App }

func (n *Node) Value() (string, error) {
	if n.ValueErr != nil {
		return "", n.ValueErr
	}
	return n.NodeValue, nil
}

func (n *Node) Parent() host.Node {
	if n.Up == nil {
		return nil
	}
	return n.Up
}

func (n *Node) SelectionRange() (host.TextRange, error) {
	if n.SelectionErr != nil {
		return nil, n.SelectionErr
	}
	if n.Selection == nil {
		return nil, host.ErrUnsupported
	}
	return n.Selection, nil
}

func (n *Node) TreeInterceptor() host.TreeInterceptor {
	if n.Interceptor == nil {
		return nil
	}
	return n.Interceptor
}

func (n *Node) AutomationValue() (string, error) { return n.AutoValue, nil }
func (n *Node) AutomationID() (string, error)    { return n.AutoID, nil }

func (n *Node) LegacyValue() (string, error) {
	if n.LegacyErr != nil {
		return "", n.LegacyErr
	}
	return n.Legacy, nil
}

// Range is an in-memory host.TextRange.
type Range struct {
	Text string
	Err  error
}

func (r *Range) Collapsed() bool { return r.Text == "" && r.Err == nil }

func (r *Range) ClipboardText() (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

// Interceptor is an in-memory host.TreeInterceptor.
type Interceptor struct {
	PassThrough bool
	Selection   *Range
	URL         string
}

func (i *Interceptor) Active() bool { return !i.PassThrough }

func (i *Interceptor) SelectionRange() (host.TextRange, error) {
	if i.Selection == nil {
		return nil, host.ErrUnsupported
	}
	return i.Selection, nil
}

func (i *Interceptor) DocumentURL() (string, error) { return i.URL, nil }

// Host records injected keys and serves a fixed focus.
type Host struct {
	mu sync.Mutex

	FocusNode *Node
	DocURL    string
	KeysErr   error
	// OnKeys runs for every SendKeys call, e.g. to put the selection on a
	// clipboard when "control+c" is injected.
	OnKeys func(combo string)

	keys   []string
	closed bool
}

func (h *Host) Name() string { return "test" }

func (h *Host) Focus(context.Context) (host.Node, error) {
	if h.FocusNode == nil {
		return nil, host.ErrNoFocus
	}
	return h.FocusNode, nil
}

func (h *Host) Navigator(ctx context.Context) (host.Node, error) { return h.Focus(ctx) }

func (h *Host) DocumentURL(context.Context) (string, error) {
	if h.DocURL == "" {
		return "", host.ErrUnsupported
	}
	return h.DocURL, nil
}

func (h *Host) SendKeys(_ context.Context, combo string) error {
	h.mu.Lock()
	h.keys = append(h.keys, combo)
	cb := h.OnKeys
	h.mu.Unlock()
	if h.KeysErr != nil {
		return h.KeysErr
	}
	if cb != nil {
		cb(combo)
	}
	return nil
}

func (h *Host) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}

// Keys returns the injected key combinations in order.
func (h *Host) Keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.keys...)
}
