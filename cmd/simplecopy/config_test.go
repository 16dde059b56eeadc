package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/simplecopy/internal/actions"
	"go.klb.dev/simplecopy/internal/clip"
	"go.klb.dev/simplecopy/internal/textnorm"
)

const sampleConfig = `
settle-window = "350ms"
append = false
line-ending = "crlf"
host = "none"
clipboard = "memory"
feedback = ["log"]
browsers = ["librewolf"]

[bindings."Shift+Control+C"]
single = "append"
multi = "clear"

[bindings."alt+u"]
single = "copy-url"
multi = "none"
`

func loadFrom(t *testing.T, content string, args ...string) *viper.Viper {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simplecopy.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Parse(append([]string{"--config", path}, args...)))
	v := viper.New()
	require.NoError(t, bindViper(cmd, v))
	return v
}

func TestLoadSettingsDefaults(t *testing.T) {
	v := loadFrom(t, "")
	s, err := loadSettings(v)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, s.Options.SettleWindow)
	assert.Equal(t, actions.DefaultEchoGuard, s.Options.EchoGuard)
	assert.True(t, s.Options.Enabled)
	assert.True(t, s.Options.Append)
	assert.Equal(t, actions.DefaultBindings(), s.Options.Bindings)
	assert.Equal(t, 50*time.Millisecond, s.Chain.FallbackDelay)
	assert.Equal(t, 5, s.Chain.AncestorHops)
	assert.Equal(t, textnorm.DefaultSeparator, s.Chain.Separator)
	assert.Equal(t, textnorm.NativeLineEnding(), s.Chain.LineEnding)
	assert.Equal(t, "auto", s.Host)
	assert.Equal(t, clip.KindAuto, s.Clipboard)
	assert.Equal(t, []string{"speech", "log"}, s.Feedback)
}

func TestLoadSettingsFromFile(t *testing.T) {
	v := loadFrom(t, sampleConfig)
	s, err := loadSettings(v)
	require.NoError(t, err)

	assert.Equal(t, 350*time.Millisecond, s.Options.SettleWindow)
	assert.False(t, s.Options.Append)
	assert.Equal(t, textnorm.CRLF, s.Chain.LineEnding)
	assert.Equal(t, "none", s.Host)
	assert.Equal(t, clip.KindMemory, s.Clipboard)
	assert.Equal(t, []string{"log"}, s.Feedback)
	assert.Equal(t, []string{"librewolf"}, s.Options.Browsers)
	assert.Equal(t, map[string]actions.Binding{
		"control+shift+c": {Single: actions.ActionAppend, Multi: actions.ActionClear},
		"alt+u":           {Single: actions.ActionCopyURL, Multi: actions.ActionNone},
	}, s.Options.Bindings)
}

func TestLoadSettingsPrecedence(t *testing.T) {
	t.Setenv("SIMPLECOPY_SETTLE_WINDOW", "400ms")
	t.Setenv("SIMPLECOPY_APPEND_SEPARATOR", `\n---\n`)

	v := loadFrom(t, sampleConfig, "--host", "x11")
	s, err := loadSettings(v)
	require.NoError(t, err)

	assert.Equal(t, 400*time.Millisecond, s.Options.SettleWindow, "env beats file")
	assert.Equal(t, "x11", s.Host, "flag beats file")
	assert.Equal(t, "\n---\n", s.Chain.Separator)
}

func TestLoadSettingsErrors(t *testing.T) {
	v := loadFrom(t, "[bindings.\"alt+q\"]\nsingle = \"explode\"\n")
	_, err := loadSettings(v)
	assert.ErrorContains(t, err, "unknown action")

	v = loadFrom(t, "ancestor-hops = 0\n")
	_, err = loadSettings(v)
	assert.ErrorContains(t, err, "ancestor-hops")

	v = loadFrom(t, "settle-window = \"-1s\"\n")
	_, err = loadSettings(v)
	assert.ErrorContains(t, err, "settle-window")
}

func TestPrintConfigRoundTrip(t *testing.T) {
	v := loadFrom(t, sampleConfig)
	var buf bytes.Buffer
	require.NoError(t, printConfig(&buf, v))
	assert.Contains(t, buf.String(), "# loaded from ")

	var got fileConfig
	_, err := toml.Decode(buf.String(), &got)
	require.NoError(t, err)
	assert.Equal(t, "350ms", got.SettleWindow)
	assert.Equal(t, "none", got.Host)
	assert.Equal(t, actions.Binding{Single: actions.ActionAppend, Multi: actions.ActionClear}, got.Bindings["control+shift+c"])
}
