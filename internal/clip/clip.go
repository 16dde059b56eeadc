// Package clip provides text access to the system clipboard. Build
// constraints select the native implementation:
//
//	clip_system.go   darwin, linux, windows via golang.design/x/clipboard
//	clip_other.go    everything else falls back to the command backend
//
// command.go wraps github.com/atotto/clipboard (xclip, xsel, wl-clipboard,
// pbcopy) and memory.go is an in-process clipboard used headless and in
// tests.
package clip

import (
	"errors"
	"log/slog"
	"strings"
)

// ErrNonText is returned by ReadText when the clipboard holds data that is
// not text, such as an image.
var ErrNonText = errors.New("clipboard holds non-text content")

// ErrUnavailable is returned when no clipboard mechanism can be reached.
var ErrUnavailable = errors.New("clipboard unavailable")

// Backend is the interface that all clipboard implementations satisfy.
// Calls are serialized by the implementation.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the clipboard text. An empty clipboard yields "", nil.
	ReadText() (string, error)

	// WriteText replaces the clipboard contents with s.
	WriteText(s string) error

	// Clear empties the clipboard.
	Clear() error

	// Close releases any resources held by the backend.
	Close()
}

// Kind names a backend for configuration.
type Kind string

const (
	KindAuto    Kind = "auto"
	KindSystem  Kind = "system"
	KindCommand Kind = "command"
	KindMemory  Kind = "memory"
)

// ParseKind converts a config string to a Kind, defaulting to KindAuto.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSystem:
		return KindSystem
	case KindCommand:
		return KindCommand
	case KindMemory, "headless":
		return KindMemory
	default:
		return KindAuto
	}
}

// New returns a clipboard backend. KindAuto tries the native clipboard, then
// the command-line tools, and finally an in-memory clipboard so the daemon
// still runs on a headless machine.
func New(kind Kind) Backend {
	switch kind {
	case KindMemory:
		return NewMemory("")
	case KindCommand:
		b, err := newCommand()
		if err != nil {
			slog.Warn("command clipboard unavailable, running headless", "err", err)
			return NewMemory("")
		}
		return b
	case KindSystem:
		b, err := newSystem()
		if err != nil {
			slog.Warn("system clipboard unavailable, running headless", "err", err)
			return NewMemory("")
		}
		return b
	}

	b, err := newSystem()
	if err == nil {
		return b
	}
	slog.Debug("system clipboard init failed", "err", err)

	b, err = newCommand()
	if err == nil {
		return b
	}
	slog.Warn("clipboard unavailable, running headless", "err", err)
	return NewMemory("")
}
