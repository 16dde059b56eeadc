package actions

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/simplecopy/internal/clip"
	"go.klb.dev/simplecopy/internal/feedback"
	"go.klb.dev/simplecopy/internal/host"
	"go.klb.dev/simplecopy/internal/host/hosttest"
	"go.klb.dev/simplecopy/internal/loop"
	"go.klb.dev/simplecopy/internal/retrieve"
	"go.klb.dev/simplecopy/internal/textnorm"
)

type fakeTimer struct {
	at   time.Time
	f    func()
	done bool
}

func (t *fakeTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	return true
}

type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) loop.Timer {
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
	for _, t := range c.timers {
		if !t.done && !t.at.After(c.now) {
			t.done = true
			t.f()
		}
	}
}

type fixture struct {
	clock *fakeClock
	host  *hosttest.Host
	clip  *clip.Memory
	say   *feedback.Recorder
	p     *Plugin
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		clock: &fakeClock{now: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)},
		host:  &hosttest.Host{},
		clip:  clip.NewMemory(""),
		say:   &feedback.Recorder{},
	}
	chain := retrieve.New(f.host, f.clip, retrieve.Config{LineEnding: textnorm.LF, FallbackDelay: time.Nanosecond})
	f.p = New(f.host, chain, f.say, f.clock, opts)
	return f
}

func (f *fixture) tap(t *testing.T, gesture string, n int) {
	t.Helper()
	for range n {
		require.NoError(t, f.p.Tap(gesture))
		f.clock.Advance(100 * time.Millisecond)
	}
	f.clock.Advance(time.Second)
}

func browserPage() *hosttest.Node {
	return &hosttest.Node{
		NodeRole:    host.RoleDocument,
		App:         "firefox",
		Interceptor: &hosttest.Interceptor{URL: "https://example.com/page"},
	}
}

func TestCopyURLSingleTap(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.host.FocusNode = browserPage()

	f.tap(t, "control+shift+a", 1)
	assert.Equal(t, "https://example.com/page", f.clip.Text())
	assert.Equal(t, MsgCopy, f.say.Last())
	assert.True(t, f.p.Status().Copied)
}

func TestCopyURLPassthrough(t *testing.T) {
	tests := []struct {
		name  string
		focus *hosttest.Node
	}{
		{"editable field", &hosttest.Node{App: "firefox", NodeEditable: true}},
		{"not a browser", &hosttest.Node{App: "gedit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultOptions())
			f.host.FocusNode = tt.focus

			f.tap(t, "control+shift+a", 1)
			assert.Equal(t, []string{"control+shift+a"}, f.host.Keys())
			assert.Empty(t, f.say.Messages())
		})
	}
}

func TestCopyURLMissing(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.host.FocusNode = &hosttest.Node{App: "chrome"}

	f.tap(t, "control+shift+a", 1)
	assert.Equal(t, MsgNoURL, f.say.Last())
	assert.Empty(t, f.clip.Text())
}

func TestCopyLinkDoubleTap(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	link := &hosttest.Node{NodeRole: host.RoleLink, App: "firefox", NodeValue: "https://example.com"}
	leaf := hosttest.Chain(&hosttest.Node{NodeRole: host.RoleText, App: "firefox"}, link)
	f.host.FocusNode = leaf

	f.tap(t, "control+shift+a", 2)
	assert.Equal(t, MsgCopy, f.say.Last())
	assert.Equal(t, ActionCopyLink, f.p.Status().Stats.LastAction)
}

func TestCopyLinkNotFound(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.host.FocusNode = &hosttest.Node{NodeRole: host.RoleText, App: "firefox"}

	f.tap(t, "shift+l", 2)
	assert.Equal(t, MsgNoLink, f.say.Last())
}

func TestAppendSingleTap(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.host.FocusNode = &hosttest.Node{App: "gedit", Selection: &hosttest.Range{Text: "first"}}

	f.tap(t, "control+shift+c", 1)
	assert.Equal(t, MsgCopied, f.say.Last())
	assert.Equal(t, "first", f.clip.Text())

	f.host.FocusNode.Selection.Text = "second"
	f.tap(t, "control+shift+c", 1)
	assert.Equal(t, MsgAppended, f.say.Last())
	assert.Equal(t, "first\n\nsecond", f.clip.Text())
	assert.Equal(t, retrieve.MethodDirect, f.p.Status().Stats.LastMethod)
}

func TestAppendMessages(t *testing.T) {
	t.Run("nothing selected", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		f.host.FocusNode = &hosttest.Node{Selection: &hosttest.Range{}}
		f.tap(t, "control+shift+c", 1)
		assert.Equal(t, MsgNoTextToAppend, f.say.Last())
	})
	t.Run("non-text clipboard", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		f.clip.SetNonText()
		f.host.FocusNode = &hosttest.Node{Selection: &hosttest.Range{Text: "x"}}
		f.tap(t, "control+shift+c", 1)
		assert.Equal(t, MsgNonTextClip, f.say.Last())
		assert.True(t, f.clip.NonText())
	})
	t.Run("write failure", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		f.clip.WriteErr = errors.New("locked")
		f.host.FocusNode = &hosttest.Node{Selection: &hosttest.Range{Text: "x"}}
		f.tap(t, "control+shift+c", 1)
		assert.Equal(t, MsgWriteError, f.say.Last())
		msgs := f.say.Messages()
		assert.Equal(t, feedback.LevelError, msgs[len(msgs)-1].Level)
	})
}

func TestAppendDisabledPassesThrough(t *testing.T) {
	opts := DefaultOptions()
	opts.Append = false
	f := newFixture(t, opts)
	f.host.FocusNode = &hosttest.Node{Selection: &hosttest.Range{Text: "x"}}

	f.tap(t, "control+shift+c", 1)
	assert.Equal(t, []string{"control+shift+c"}, f.host.Keys())
	assert.Empty(t, f.clip.Text())
}

func TestDoubleTapClears(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	require.NoError(t, f.clip.WriteText("old"))

	f.tap(t, "control+shift+c", 2)
	assert.Empty(t, f.clip.Text())
	assert.Equal(t, MsgClean, f.say.Last())
	assert.False(t, f.p.Status().Copied)
}

func TestClearFailure(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.clip.WriteErr = errors.New("locked")
	f.tap(t, "windows+z", 1)
	assert.Equal(t, MsgCannotClean, f.say.Last())
}

func TestCopyFilename(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.host.FocusNode = &hosttest.Node{NodeRole: host.RoleListItem, App: "nautilus", NodeName: " report.pdf "}

	f.tap(t, "shift+f", 2)
	assert.Equal(t, "report.pdf", f.clip.Text())
	assert.Equal(t, MsgCopy, f.say.Last())

	f.host.FocusNode = &hosttest.Node{App: "gedit", NodeName: "x"}
	f.tap(t, "shift+f", 2)
	assert.Equal(t, MsgNotInFileMgr, f.say.Last())

	f.host.FocusNode = &hosttest.Node{App: "nautilus"}
	f.tap(t, "shift+f", 2)
	assert.Equal(t, MsgNoName, f.say.Last())
}

func TestCopyDateTime(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.tap(t, "shift+d", 2)
	assert.Equal(t, MsgDateTimeCopied, f.say.Last())
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, f.clip.Text())
	assert.Equal(t, "2024-03-05", f.clip.Text()[:10])
}

func TestSingleTapOfDoubleOnlyGesturePassesThrough(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.tap(t, "shift+d", 1)
	assert.Equal(t, []string{"shift+d"}, f.host.Keys())
	assert.Empty(t, f.clip.Text())
}

func TestToggleAppend(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.tap(t, "windows+c", 1)
	assert.Equal(t, MsgAppendOff, f.say.Last())
	assert.False(t, f.p.Status().Append)

	assert.True(t, f.p.ToggleAppend())
	assert.Equal(t, MsgAppendOn, f.say.Last())
}

func TestEchoGuard(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.host.FocusNode = &hosttest.Node{App: "gedit"}

	f.tap(t, "shift+d", 1)
	require.Equal(t, []string{"shift+d"}, f.host.Keys())

	// The binder sees the injected key and reports it straight back.
	require.NoError(t, f.p.Tap("shift+d"))
	f.clock.Advance(time.Second)
	assert.Equal(t, []string{"shift+d"}, f.host.Keys(), "echo must not be re-injected")
	assert.Equal(t, uint64(1), f.p.Status().Stats.Dropped)

	// A later real press is handled normally.
	f.tap(t, "shift+d", 1)
	assert.Len(t, f.host.Keys(), 2)
}

func TestDisabledPassesEverythingThrough(t *testing.T) {
	opts := DefaultOptions()
	opts.Enabled = false
	f := newFixture(t, opts)
	f.host.FocusNode = browserPage()

	require.NoError(t, f.p.Tap("Control+Shift+A"))
	assert.Equal(t, []string{"control+shift+a"}, f.host.Keys())
	assert.Empty(t, f.clip.Text())
}

func TestUnknownGesture(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	assert.ErrorIs(t, f.p.Tap("alt+q"), ErrUnknownGesture)
}

func TestApplyRebinds(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	opts := DefaultOptions()
	opts.Bindings = map[string]Binding{"alt+d": {Single: ActionCopyDateTime}}
	opts.SettleWindow = 200 * time.Millisecond
	f.p.Apply(opts)

	assert.ErrorIs(t, f.p.Tap("shift+d"), ErrUnknownGesture)
	f.tap(t, "alt+d", 1)
	assert.Equal(t, MsgDateTimeCopied, f.say.Last())

	st := f.p.Status()
	assert.Equal(t, 200*time.Millisecond, st.SettleWindow)
	assert.Len(t, st.Gestures, 1)
}

func TestParseBindings(t *testing.T) {
	b, err := ParseBindings(map[string]map[string]string{
		"Shift+Control+X": {"single": "copy-url", "multi": "clear"},
		"alt+y":           {"multi": "append"},
	})
	require.NoError(t, err)
	assert.Equal(t, Binding{Single: ActionCopyURL, Multi: ActionClear}, b["control+shift+x"])
	assert.Equal(t, Binding{Single: ActionNone, Multi: ActionAppend}, b["alt+y"])

	_, err = ParseBindings(map[string]map[string]string{"x": {"single": "explode"}})
	assert.ErrorContains(t, err, "unknown action")
}

func TestAppMatches(t *testing.T) {
	assert.True(t, appMatches("Google-chrome", DefaultBrowsers))
	assert.True(t, appMatches("firefox-esr", DefaultBrowsers))
	assert.False(t, appMatches("", DefaultBrowsers))
	assert.False(t, appMatches("gedit", DefaultBrowsers))
}
