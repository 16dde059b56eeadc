package atspi

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/simplecopy/internal/host"
)

func TestMapRole(t *testing.T) {
	tests := []struct {
		in   uint32
		want host.Role
	}{
		{88, host.RoleLink},
		{79, host.RoleEditableText},
		{40, host.RoleEditableText},
		{61, host.RoleText},
		{95, host.RoleDocument},
		{82, host.RoleDocument},
		{32, host.RoleListItem},
		{91, host.RoleTreeItem},
		{23, host.RoleWindow},
		{75, host.RoleApplication},
		{43, host.RoleUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapRole(tt.in), "role %d", tt.in)
	}
}

func TestHasState(t *testing.T) {
	// ENABLED (8), EDITABLE (7), FOCUSABLE (11), and bit 33 in the high word.
	words := []uint32{1<<7 | 1<<8 | 1<<11, 1 << 1}
	assert.True(t, hasState(words, stateEditable))
	assert.True(t, hasState(words, 33))
	assert.False(t, hasState(words, 12))
	assert.False(t, hasState(words, 70), "out of range")
	assert.False(t, hasState(nil, stateEditable))
}

func TestParseRef(t *testing.T) {
	r, ok := parseRef([]any{":1.42", dbus.ObjectPath("/org/a11y/atspi/accessible/7")})
	require.True(t, ok)
	assert.Equal(t, ref{bus: ":1.42", path: "/org/a11y/atspi/accessible/7"}, r)
	assert.False(t, r.null())

	r, ok = parseRef([]any{"", nullPath})
	require.True(t, ok)
	assert.True(t, r.null())

	_, ok = parseRef("not a struct")
	assert.False(t, ok)
	_, ok = parseRef([]any{":1.42", "/not/an/object/path"})
	assert.False(t, ok)
}

func TestFocusGained(t *testing.T) {
	sig := &dbus.Signal{
		Sender: ":1.42",
		Path:   "/org/a11y/atspi/accessible/7",
		Name:   ifaceObject + ".StateChanged",
		Body:   []any{"focused", int32(1), int32(0), dbus.MakeVariant(0), map[string]dbus.Variant{}},
	}
	r, ok := focusGained(sig)
	require.True(t, ok)
	assert.Equal(t, ":1.42", r.bus)

	lost := *sig
	lost.Body = []any{"focused", int32(0), int32(0)}
	_, ok = focusGained(&lost)
	assert.False(t, ok)

	other := *sig
	other.Body = []any{"selected", int32(1), int32(0)}
	_, ok = focusGained(&other)
	assert.False(t, ok)

	wrong := *sig
	wrong.Name = "org.a11y.atspi.Event.Window.Activate"
	_, ok = focusGained(&wrong)
	assert.False(t, ok)

	_, ok = focusGained(nil)
	assert.False(t, ok)
}

func TestUnsupported(t *testing.T) {
	err := unsupported(dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownMethod", Body: []any{"no Text"}})
	assert.ErrorIs(t, err, host.ErrUnsupported)

	err = unsupported(&dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownInterface"})
	assert.ErrorIs(t, err, host.ErrUnsupported)

	boom := errors.New("timeout")
	assert.Equal(t, boom, unsupported(boom))
}

type keyRecorder struct{ keys []string }

func (k *keyRecorder) SendKeys(_ context.Context, combo string) error {
	k.keys = append(k.keys, combo)
	return nil
}

func TestHostWithoutFocus(t *testing.T) {
	keys := &keyRecorder{}
	h := &Host{keys: keys}
	ctx := context.Background()

	assert.Equal(t, "atspi", h.Name())
	_, err := h.Focus(ctx)
	assert.ErrorIs(t, err, host.ErrNoFocus)
	_, err = h.DocumentURL(ctx)
	assert.ErrorIs(t, err, host.ErrNoFocus)

	require.NoError(t, h.SendKeys(ctx, "control+c"))
	assert.Equal(t, []string{"control+c"}, keys.keys)

	assert.ErrorIs(t, (&Host{}).SendKeys(ctx, "control+c"), host.ErrUnsupported)
}
