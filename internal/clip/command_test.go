//go:build !windows

package clip

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeXclip answers "-out" with $FAKE_TEXT, or fails like xclip does when
// no text target is offered. "-target TARGETS" prints $FAKE_TARGETS and
// fails when it is empty, which is what xclip does with no owner.
const fakeXclip = `#!/bin/sh
case "$*" in
*TARGETS*)
	if [ -z "$FAKE_TARGETS" ]; then
		echo "Error: target TARGETS not available" >&2
		exit 1
	fi
	printf '%s\n' $FAKE_TARGETS
	;;
*)
	if [ -z "$FAKE_TEXT" ]; then
		echo "Error: target STRING not available" >&2
		exit 1
	fi
	printf '%s' "$FAKE_TEXT"
	;;
esac
`

const fakeWlPaste = `#!/bin/sh
echo "$FAKE_STDERR" >&2
exit 1
`

func installFake(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755))
	t.Setenv("PATH", dir)
}

// execRead reads the clipboard the way the utility backends do.
func execRead(name string, args ...string) func() (string, error) {
	return func() (string, error) {
		out, err := exec.Command(name, args...).Output()
		return string(out), err
	}
}

func xclipBackend(t *testing.T, text, targets string) commandBackend {
	t.Helper()
	installFake(t, "xclip", fakeXclip)
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("FAKE_TEXT", text)
	t.Setenv("FAKE_TARGETS", targets)
	return commandBackend{read: execRead("xclip", "-selection", "clipboard", "-out")}
}

func TestCommandReadText(t *testing.T) {
	b := xclipBackend(t, "PRIOR", "TARGETS UTF8_STRING")
	s, err := b.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "PRIOR", s)
}

func TestCommandEmptyClipboard(t *testing.T) {
	b := xclipBackend(t, "", "")
	s, err := b.ReadText()
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestCommandNonText(t *testing.T) {
	b := xclipBackend(t, "", "TARGETS TIMESTAMP image/png")
	_, err := b.ReadText()
	assert.ErrorIs(t, err, ErrNonText)
}

func TestCommandTextTargetReadFails(t *testing.T) {
	b := xclipBackend(t, "", "TARGETS UTF8_STRING text/plain")
	_, err := b.ReadText()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNonText)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestCommandWaylandMessages(t *testing.T) {
	installFake(t, "wl-paste", fakeWlPaste)
	t.Setenv("WAYLAND_DISPLAY", "wayland-0")
	b := commandBackend{read: execRead("wl-paste", "--no-newline")}

	t.Setenv("FAKE_STDERR", "Nothing is copied")
	s, err := b.ReadText()
	require.NoError(t, err)
	assert.Empty(t, s)

	t.Setenv("FAKE_STDERR", "No suitable type of content copied")
	_, err = b.ReadText()
	assert.ErrorIs(t, err, ErrNonText)
}

func TestCommandMissingUtility(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	b := commandBackend{read: execRead("xclip", "-out")}
	_, err := b.ReadText()
	assert.ErrorIs(t, err, ErrUnavailable)

	b.read = func() (string, error) { return "", errors.New("boom") }
	_, err = b.ReadText()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestIsTextType(t *testing.T) {
	for _, typ := range []string{"UTF8_STRING", "STRING", "TEXT", "text/plain;charset=utf-8", "text/html"} {
		assert.True(t, isTextType(typ), typ)
	}
	for _, typ := range []string{"TARGETS", "TIMESTAMP", "image/png", "application/x-kde-cutselection"} {
		assert.False(t, isTextType(typ), typ)
	}
}
