// Package x11 is a host.Host for plain X11 sessions. The focused node is the
// active window as reported by xdotool, its selection is the X11 PRIMARY
// selection, and keys are injected with "xdotool key".
//
// Many X clients keep owning PRIMARY after the highlight is removed, so the
// selection can be stale text from an earlier highlight. xdotool cannot name
// the PRIMARY owner, so this is not checked against the active window.
package x11

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.klb.dev/simplecopy/internal/clip"
	"go.klb.dev/simplecopy/internal/host"
)

// Runner runs an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// Host talks to the X server through xdotool.
type Host struct {
	run       Runner
	selection func() (string, error)
	procRoot  string
}

// New returns a Host, or an error if there is no X display or xdotool is
// not installed.
func New() (*Host, error) {
	if os.Getenv("DISPLAY") == "" {
		return nil, fmt.Errorf("x11: %w: DISPLAY is not set", host.ErrUnsupported)
	}
	if _, err := exec.LookPath("xdotool"); err != nil {
		return nil, fmt.Errorf("x11: %w: xdotool not found", host.ErrUnsupported)
	}
	return &Host{run: execRunner, selection: clip.ReadPrimary, procRoot: "/proc"}, nil
}

func (h *Host) Name() string { return "x11" }

// Focus returns the active window.
func (h *Host) Focus(ctx context.Context) (host.Node, error) {
	out, err := h.run(ctx, "xdotool", "getactivewindow")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", host.ErrNoFocus, err)
	}
	id, err := parseWindowID(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", host.ErrNoFocus, err)
	}

	w := &window{h: h, id: id}
	if out, err := h.run(ctx, "xdotool", "getwindowname", id); err == nil {
		w.title = strings.TrimSpace(string(out))
	}
	if out, err := h.run(ctx, "xdotool", "getwindowpid", id); err == nil {
		if pid, err := parsePID(out); err == nil {
			w.app = h.appName(pid)
		}
	}
	return w, nil
}

// Navigator is the focus; X11 has no review cursor.
func (h *Host) Navigator(ctx context.Context) (host.Node, error) { return h.Focus(ctx) }

func (h *Host) DocumentURL(context.Context) (string, error) { return "", host.ErrUnsupported }

// SendKeys types combo into the focused window.
func (h *Host) SendKeys(ctx context.Context, combo string) error {
	keys := xdoKeys(combo)
	if keys == "" {
		return fmt.Errorf("x11: empty key combination %q", combo)
	}
	_, err := h.run(ctx, "xdotool", "key", "--clearmodifiers", keys)
	return err
}

func (h *Host) Close() error { return nil }

func (h *Host) appName(pid int) string {
	proc := filepath.Join(h.procRoot, strconv.Itoa(pid))
	if exe, err := os.Readlink(filepath.Join(proc, "exe")); err == nil {
		return strings.ToLower(filepath.Base(exe))
	}
	if comm, err := os.ReadFile(filepath.Join(proc, "comm")); err == nil {
		return strings.ToLower(strings.TrimSpace(string(comm)))
	}
	return ""
}

type window struct {
	h     *Host
	id    string
	title string
	app   string
}

func (w *window) Role() host.Role { return host.RoleWindow }
func (w *window) Name() string { return w.title }
func (w *window) Value() (string, error) { return "", host.ErrUnsupported }
func (w *window) Editable() bool { return false }
func (w *window) Parent() host.Node { return nil }
func (w *window) AppName() string { return w.app }

// SelectionRange returns the PRIMARY selection, which X clients set to
// whatever text is highlighted.
func (w *window) SelectionRange() (host.TextRange, error) {
	if w.h.selection == nil {
		return nil, host.ErrUnsupported
	}
	text, err := w.h.selection()
	if err != nil {
		if errors.Is(err, clip.ErrUnavailable) {
			return nil, host.ErrUnsupported
		}
		return nil, err
	}
	return primary(text), nil
}

type primary string

func (p primary) Collapsed() bool { return strings.TrimSpace(string(p)) == "" }
func (p primary) ClipboardText() (string, error) { return string(p), nil }

func parseWindowID(out []byte) (string, error) {
	s := strings.TrimSpace(string(out))
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return "", fmt.Errorf("unexpected window id %q", s)
	}
	return s, nil
}

func parsePID(out []byte) (int, error) {
	s := strings.TrimSpace(string(out))
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("unexpected pid %q", s)
	}
	return pid, nil
}

var xdoNames = map[string]string{
	"control":   "ctrl",
	"windows":   "super",
	"enter":     "Return",
	"return":    "Return",
	"tab":       "Tab",
	"escape":    "Escape",
	"esc":       "Escape",
	"space":     "space",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"insert":    "Insert",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
}

// xdoKeys converts a combination like "control+shift+a" into xdotool's
// keysym syntax ("ctrl+shift+a").
func xdoKeys(combo string) string {
	parts := strings.Split(host.NormalizeCombo(combo), "+")
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		if n, ok := xdoNames[p]; ok {
			p = n
		} else if len(p) > 1 && p[0] == 'f' {
			if _, err := strconv.Atoi(p[1:]); err == nil {
				p = "F" + p[1:]
			}
		}
		out = append(out, p)
	}
	return strings.Join(out, "+")
}
