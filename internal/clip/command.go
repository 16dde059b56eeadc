package clip

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
)

// atotto/clipboard selects the X11 selection through a package variable, so
// every call that touches it holds cmdMu.
var cmdMu sync.Mutex

type commandBackend struct {
	read func() (string, error)
}

func newCommand() (Backend, error) {
	if clipboard.Unsupported {
		return nil, fmt.Errorf("%w: no clipboard utility found (xclip, xsel, wl-clipboard)", ErrUnavailable)
	}
	return commandBackend{read: clipboard.ReadAll}, nil
}

func (commandBackend) Name() string { return "clipboard utility" }

func (b commandBackend) ReadText() (string, error) {
	cmdMu.Lock()
	defer cmdMu.Unlock()
	clipboard.Primary = false
	s, err := b.read()
	if err != nil {
		return readFailure(err)
	}
	return s, nil
}

// readFailure sorts a failed paste into an empty clipboard, a non-text
// payload or a real error. xclip prints the same "target STRING not
// available" for both of the first two, so the owner's offered types decide.
func readFailure(err error) (string, error) {
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	stderr := strings.TrimSpace(string(ee.Stderr))
	switch lower := strings.ToLower(stderr); {
	case strings.Contains(lower, "nothing is copied"):
		return "", nil
	case strings.Contains(lower, "no suitable type"):
		return "", fmt.Errorf("%w: %s", ErrNonText, stderr)
	}

	types, ok := clipboardTypes()
	if !ok {
		if strings.Contains(strings.ToLower(stderr), "not available") {
			return "", nil
		}
		return "", fmt.Errorf("clipboard read: %w", err)
	}
	if len(types) == 0 {
		return "", nil
	}
	for _, t := range types {
		if isTextType(t) {
			return "", fmt.Errorf("clipboard read: %w", err)
		}
	}
	return "", fmt.Errorf("%w: offers %s", ErrNonText, strings.Join(types, " "))
}

// clipboardTypes lists the types the clipboard owner offers. ok is false
// when no installed utility can list them.
func clipboardTypes() (types []string, ok bool) {
	var cmd *exec.Cmd
	switch {
	case os.Getenv("WAYLAND_DISPLAY") != "" && hasCommand("wl-paste"):
		cmd = exec.Command("wl-paste", "--list-types")
	case hasCommand("xclip"):
		cmd = exec.Command("xclip", "-selection", "clipboard", "-out", "-target", "TARGETS")
	default:
		return nil, false
	}
	out, err := cmd.Output()
	if err != nil {
		// Both utilities fail when nothing owns the clipboard.
		return nil, true
	}
	return strings.Fields(string(out)), true
}

func hasCommand(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func isTextType(t string) bool {
	switch t = strings.ToLower(t); t {
	case "utf8_string", "string", "text", "compound_text":
		return true
	}
	return strings.HasPrefix(t, "text/")
}

func (commandBackend) WriteText(s string) error {
	cmdMu.Lock()
	defer cmdMu.Unlock()
	clipboard.Primary = false
	return clipboard.WriteAll(s)
}

func (b commandBackend) Clear() error { return b.WriteText("") }

func (commandBackend) Close() {}

// ReadPrimary returns the X11 PRIMARY selection, i.e. the text currently
// highlighted in any X client. It needs xclip or xsel.
func ReadPrimary() (string, error) {
	cmdMu.Lock()
	defer cmdMu.Unlock()
	if clipboard.Unsupported {
		return "", ErrUnavailable
	}
	clipboard.Primary = true
	defer func() { clipboard.Primary = false }()
	return clipboard.ReadAll()
}
