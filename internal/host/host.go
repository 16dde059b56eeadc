// Package host describes the desktop collaborators simplecopy needs: the
// focused accessibility node, its optional text and URL capabilities, and key
// injection. Concrete hosts live in sub-packages (atspi, x11); a Host that
// cannot provide a capability returns ErrUnsupported.
package host

import (
	"context"
	"errors"
	"strings"
)

// ErrUnsupported means the node or host does not expose a capability.
var ErrUnsupported = errors.New("capability not supported")

// ErrNoFocus is returned by Focus when nothing is focused.
var ErrNoFocus = errors.New("no focused object")

// Role is a coarse accessibility role.
type Role int

const (
	RoleUnknown Role = iota
	RoleLink
	RoleEditableText
	RoleDocument
	RoleListItem
	RoleTreeItem
	RoleWindow
	RoleApplication
	RoleText
)

var roleNames = map[Role]string{
	RoleUnknown:      "unknown",
	RoleLink:         "link",
	RoleEditableText: "editable-text",
	RoleDocument:     "document",
	RoleListItem:     "list-item",
	RoleTreeItem:     "tree-item",
	RoleWindow:       "window",
	RoleApplication:  "application",
	RoleText:         "text",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return "unknown"
}

// Node is an element of the host accessibility tree.
type Node interface {
	Role() Role
	Name() string
	// Value is the node's primary value, e.g. the target of a link.
	Value() (string, error)
	Editable() bool
	// Parent returns nil at the root.
	Parent() Node
	// AppName identifies the owning application (e.g. "firefox").
	AppName() string
}

// TextRange is a selection range inside a node.
type TextRange interface {
	Collapsed() bool
	// ClipboardText is the range's text formatted for the clipboard.
	ClipboardText() (string, error)
}

// TextRanger is implemented by nodes and interceptors that can report their
// current selection without touching the clipboard.
type TextRanger interface {
	SelectionRange() (TextRange, error)
}

// TreeInterceptor is a virtual-buffer layer over a document, such as a
// browser's browse mode.
type TreeInterceptor interface {
	TextRanger
	// Active is false when the interceptor is in pass-through mode.
	Active() bool
	DocumentURL() (string, error)
}

// Intercepted is implemented by nodes that sit under a TreeInterceptor.
type Intercepted interface {
	TreeInterceptor() TreeInterceptor
}

// AutomationElement is the UI Automation view of a node.
type AutomationElement interface {
	AutomationValue() (string, error)
	AutomationID() (string, error)
}

// LegacyAccessible is the MSAA-style view of a node.
type LegacyAccessible interface {
	LegacyValue() (string, error)
}

// Host is the desktop integration surface.
type Host interface {
	Name() string
	// Focus returns the focused node, or ErrNoFocus.
	Focus(ctx context.Context) (Node, error)
	// Navigator returns the node under the review cursor. Hosts without a
	// separate review cursor return the focus.
	Navigator(ctx context.Context) (Node, error)
	// DocumentURL returns the URL of the focused document, or ErrUnsupported.
	DocumentURL(ctx context.Context) (string, error)
	// SendKeys injects a key combination such as "control+c".
	SendKeys(ctx context.Context, combo string) error
	Close() error
}

// Ancestor walks up to hops parents from n and returns the first node for
// which match returns true, or nil. n itself is not considered.
func Ancestor(n Node, hops int, match func(Node) bool) Node {
	for i := 0; i < hops && n != nil; i++ {
		n = n.Parent()
		if n == nil {
			return nil
		}
		if match(n) {
			return n
		}
	}
	return nil
}

// NormalizeCombo lower-cases a key combination and orders its modifiers so
// "Shift+Control+A" and "control+shift+a" compare equal.
func NormalizeCombo(combo string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	order := map[string]int{"control": 0, "ctrl": 0, "alt": 1, "shift": 2, "windows": 3, "super": 3, "meta": 3}
	var mods [4]string
	var keys []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if i, ok := order[p]; ok {
			mods[i] = canonicalModifier(p)
			continue
		}
		keys = append(keys, p)
	}
	var out []string
	for _, m := range mods {
		if m != "" {
			out = append(out, m)
		}
	}
	return strings.Join(append(out, keys...), "+")
}

func canonicalModifier(m string) string {
	switch m {
	case "ctrl":
		return "control"
	case "super", "meta":
		return "windows"
	default:
		return m
	}
}
