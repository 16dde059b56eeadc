package actions

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"time"

	"go.klb.dev/simplecopy/internal/feedback"
	"go.klb.dev/simplecopy/internal/host"
	"go.klb.dev/simplecopy/internal/loop"
	"go.klb.dev/simplecopy/internal/retrieve"
	"go.klb.dev/simplecopy/internal/tap"
)

const (
	// DefaultEchoGuard drops taps of a gesture this soon after the daemon
	// injected that same gesture itself.
	DefaultEchoGuard = 300 * time.Millisecond

	actionTimeout = 2 * time.Second
)

// ErrUnknownGesture is returned by Tap for gestures with no binding.
var ErrUnknownGesture = tap.ErrUnknownGesture

// Options configure a Plugin. They can be replaced at runtime with Apply.
type Options struct {
	Enabled        bool
	Append         bool
	SettleWindow   time.Duration
	EchoGuard      time.Duration
	Browsers       []string
	FileManagers   []string
	DateTimeLayout string
	Bindings       map[string]Binding
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		Enabled:        true,
		Append:         true,
		SettleWindow:   tap.DefaultSettleWindow,
		EchoGuard:      DefaultEchoGuard,
		Browsers:       DefaultBrowsers,
		FileManagers:   DefaultFileManagers,
		DateTimeLayout: DefaultDateTimeLayout,
		Bindings:       DefaultBindings(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SettleWindow <= 0 {
		o.SettleWindow = d.SettleWindow
	}
	if o.EchoGuard < 0 {
		o.EchoGuard = 0
	}
	if len(o.Browsers) == 0 {
		o.Browsers = d.Browsers
	}
	if len(o.FileManagers) == 0 {
		o.FileManagers = d.FileManagers
	}
	if o.DateTimeLayout == "" {
		o.DateTimeLayout = d.DateTimeLayout
	}
	if len(o.Bindings) == 0 {
		o.Bindings = d.Bindings
	}
	bindings := make(map[string]Binding, len(o.Bindings))
	for g, b := range o.Bindings {
		bindings[host.NormalizeCombo(g)] = b
	}
	o.Bindings = bindings
	return o
}

// Plugin owns the gesture table and runs actions. All methods must be
// called on the event loop that backs sched.
type Plugin struct {
	host  host.Host
	chain *retrieve.Chain
	say   feedback.Announcer
	sched loop.Scheduler
	taps  *tap.Disambiguator

	opts     Options
	copied   bool
	injected map[string]time.Time

	stats Stats
}

// Stats counts what the plugin has done since start.
type Stats struct {
	Taps        uint64
	Dropped     uint64
	Actions     uint64
	LastAction  Action
	LastMethod  retrieve.Method
	LastMessage string
}

// New returns a Plugin with opts' gestures registered.
func New(h host.Host, chain *retrieve.Chain, say feedback.Announcer, sched loop.Scheduler, opts Options) *Plugin {
	opts = opts.withDefaults()
	p := &Plugin{
		host:     h,
		chain:    chain,
		say:      say,
		sched:    sched,
		taps:     tap.New(sched, opts.SettleWindow),
		opts:     opts,
		injected: make(map[string]time.Time),
	}
	p.bind(opts.Bindings)
	return p
}

func (p *Plugin) bind(bindings map[string]Binding) {
	for _, g := range p.taps.Gestures() {
		if _, ok := bindings[g]; !ok {
			p.taps.Unregister(g)
		}
	}
	for g, b := range bindings {
		gesture := g
		single, multi := b.Single, b.Multi
		p.taps.Register(gesture, tap.Binding{
			Single: func() { p.run(gesture, single) },
			Multi:  func() { p.run(gesture, multi) },
		})
	}
}

// Apply replaces the options. Tap bursts already in progress finish with
// the new bindings.
func (p *Plugin) Apply(opts Options) {
	opts = opts.withDefaults()
	p.opts = opts
	p.taps.SetWindow(opts.SettleWindow)
	p.bind(opts.Bindings)
	slog.Info("options applied",
		"enabled", opts.Enabled,
		"append", opts.Append,
		"settle_window", opts.SettleWindow,
		"gestures", len(opts.Bindings),
	)
}

// Options returns the current options.
func (p *Plugin) Options() Options { return p.opts }

// Tap feeds one key press of gesture into the disambiguator.
func (p *Plugin) Tap(gesture string) error {
	gesture = host.NormalizeCombo(gesture)
	now := p.sched.Now()

	if at, ok := p.injected[gesture]; ok {
		delete(p.injected, gesture)
		if now.Sub(at) < p.opts.EchoGuard {
			p.stats.Dropped++
			slog.Debug("dropping echo of injected gesture", "gesture", gesture)
			return nil
		}
	}
	if _, ok := p.opts.Bindings[gesture]; !ok {
		return ErrUnknownGesture
	}
	p.stats.Taps++

	if !p.opts.Enabled {
		p.passthrough(gesture)
		return nil
	}
	return p.taps.OnTap(gesture, now)
}

// ToggleAppend flips the append switch and announces the new state.
func (p *Plugin) ToggleAppend() bool {
	p.opts.Append = !p.opts.Append
	if p.opts.Append {
		p.announce(MsgAppendOn, feedback.LevelInfo)
	} else {
		p.announce(MsgAppendOff, feedback.LevelInfo)
	}
	return p.opts.Append
}

// Close cancels pending tap actions.
func (p *Plugin) Close() { p.taps.Close() }

// Status is a point-in-time snapshot for the control surface.
type Status struct {
	Host         string
	Enabled      bool
	Append       bool
	Copied       bool
	SettleWindow time.Duration
	Gestures     map[string]Binding
	Armed        []string
	Stats        Stats
}

// Status returns a snapshot of the plugin state.
func (p *Plugin) Status() Status {
	var armed []string
	for _, g := range p.taps.Gestures() {
		if st, ok := p.taps.State(g); ok && st.Armed() {
			armed = append(armed, g)
		}
	}
	sort.Strings(armed)
	return Status{
		Host:         p.host.Name(),
		Enabled:      p.opts.Enabled,
		Append:       p.opts.Append,
		Copied:       p.copied,
		SettleWindow: p.taps.Window(),
		Gestures:     maps.Clone(p.opts.Bindings),
		Armed:        armed,
		Stats:        p.stats,
	}
}

func (p *Plugin) run(gesture string, a Action) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	slog.Debug("action", "gesture", gesture, "action", a)
	p.stats.Actions++
	p.stats.LastAction = a

	switch a {
	case ActionNone:
	case ActionPassthrough:
		p.passthrough(gesture)
	case ActionCopyURL:
		p.copyURL(ctx, gesture)
	case ActionCopyLink:
		p.copyLink(ctx, gesture)
	case ActionAppend:
		p.appendSelection(ctx, gesture)
	case ActionClear:
		p.clear()
	case ActionCopyFilename:
		p.copyFilename(ctx)
	case ActionCopyDateTime:
		p.copyDateTime()
	case ActionToggleAppend:
		p.ToggleAppend()
	default:
		slog.Error("unhandled action", "gesture", gesture, "action", a)
	}
}

func (p *Plugin) announce(msg string, level feedback.Level) {
	p.stats.LastMessage = msg
	p.say.Announce(msg, level)
}

// passthrough re-injects gesture so the focused application receives it.
func (p *Plugin) passthrough(gesture string) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	p.injected[gesture] = p.sched.Now()
	if err := p.host.SendKeys(ctx, gesture); err != nil {
		delete(p.injected, gesture)
		slog.Warn("passthrough failed", "gesture", gesture, "err", err)
	}
}

func (p *Plugin) focus(ctx context.Context) host.Node {
	n, err := p.host.Focus(ctx)
	if err != nil {
		if !errors.Is(err, host.ErrNoFocus) {
			slog.Warn("focus lookup failed", "err", err)
		}
		return nil
	}
	return n
}

func (p *Plugin) inBrowser(n host.Node) bool {
	return n != nil && appMatches(n.AppName(), p.opts.Browsers)
}

func (p *Plugin) copyText(text, okMsg string) {
	if err := p.chain.CopyText(text); err != nil {
		slog.Error("clipboard write failed", "err", err)
		p.announce(MsgFailedCopy, feedback.LevelError)
		return
	}
	p.copied = true
	p.announce(okMsg, feedback.LevelInfo)
}

func (p *Plugin) copyURL(ctx context.Context, gesture string) {
	obj := p.focus(ctx)
	if isEditable(obj) || !p.inBrowser(obj) {
		p.passthrough(gesture)
		return
	}
	u, ok := p.chain.CurrentURL(ctx, obj)
	if !ok {
		p.announce(MsgNoURL, feedback.LevelError)
		return
	}
	p.copyText(u, MsgCopy)
}

func (p *Plugin) copyLink(ctx context.Context, gesture string) {
	obj := p.focus(ctx)
	if isEditable(obj) || !p.inBrowser(obj) {
		p.passthrough(gesture)
		return
	}
	nav, err := p.host.Navigator(ctx)
	if err != nil || !p.inBrowser(nav) {
		p.announce(MsgNotInBrowser, feedback.LevelError)
		return
	}
	u, ok := p.chain.LinkURL(nav)
	if !ok {
		p.announce(MsgNoLink, feedback.LevelError)
		return
	}
	p.copyText(u, MsgCopy)
}

func (p *Plugin) appendSelection(ctx context.Context, gesture string) {
	if !p.opts.Append {
		p.passthrough(gesture)
		return
	}
	res, ok := p.chain.SelectedText(ctx, p.focus(ctx))
	if !ok {
		p.announce(MsgNoTextToAppend, feedback.LevelInfo)
		return
	}
	p.stats.LastMethod = res.Method

	out := p.chain.AppendToClipboard(res.Text)
	switch {
	case out.Applied && out.Appended:
		p.copied = true
		p.announce(MsgAppended, feedback.LevelInfo)
	case out.Applied:
		p.copied = true
		p.announce(MsgCopied, feedback.LevelInfo)
	case errors.Is(out.Err, retrieve.ErrNonTextClipboard):
		p.announce(MsgNonTextClip, feedback.LevelError)
	case errors.Is(out.Err, retrieve.ErrWriteFailure):
		slog.Error("append write failed", "err", out.Err)
		p.announce(MsgWriteError, feedback.LevelError)
	case errors.Is(out.Err, retrieve.ErrNothingSelected):
		p.announce(MsgNoTextToAppend, feedback.LevelInfo)
	default:
		slog.Error("append failed", "err", out.Err)
		p.announce(MsgAppendError, feedback.LevelError)
	}
}

func (p *Plugin) clear() {
	if err := p.chain.ClearClipboard(); err != nil {
		slog.Error("clipboard clear failed", "err", err)
		p.announce(MsgCannotClean, feedback.LevelError)
		return
	}
	p.copied = false
	p.announce(MsgClean, feedback.LevelInfo)
}

func (p *Plugin) copyFilename(ctx context.Context) {
	obj := p.focus(ctx)
	if obj == nil || !appMatches(obj.AppName(), p.opts.FileManagers) {
		p.announce(MsgNotInFileMgr, feedback.LevelError)
		return
	}
	name := strings.TrimSpace(obj.Name())
	if name == "" {
		p.announce(MsgNoName, feedback.LevelError)
		return
	}
	p.copyText(name, MsgCopy)
}

func (p *Plugin) copyDateTime() {
	p.copyText(p.sched.Now().Format(p.opts.DateTimeLayout), MsgDateTimeCopied)
}
