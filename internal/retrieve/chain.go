// Package retrieve gets selected text out of the focused application and
// moves it onto the clipboard. Strategies run in order and the first one to
// produce text wins; the structured text-range query is tried before the
// clipboard round-trip, which is destructive and always restores the
// previous clipboard contents.
//
// The round-trip is skipped when the clipboard holds non-text data such as
// an image, since that payload could not be put back afterwards.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.klb.dev/simplecopy/internal/clip"
	"go.klb.dev/simplecopy/internal/host"
	"go.klb.dev/simplecopy/internal/textnorm"
)

const (
	DefaultFallbackDelay = 50 * time.Millisecond
	DefaultAncestorHops  = 5
	DefaultCopyKey       = "control+c"

	previewRunes = 50
)

// Method names the strategy that produced a Result.
type Method string

const (
	MethodDirect    Method = "direct"
	MethodClipboard Method = "clipboard"
)

// Result is retrieved, normalized text and where it came from.
type Result struct {
	Text   string
	Method Method
}

// Strategy is one way of getting the selected text of a node. An empty
// string with a nil error means the strategy ran and found nothing.
type Strategy struct {
	Method Method
	Fn     func(ctx context.Context, n host.Node) (string, error)
}

// Config tunes a Chain. Zero values take the defaults.
type Config struct {
	FallbackDelay time.Duration
	AncestorHops  int
	Separator     string
	LineEnding    textnorm.LineEnding
	CopyKey       string
}

func (c Config) withDefaults() Config {
	if c.FallbackDelay <= 0 {
		c.FallbackDelay = DefaultFallbackDelay
	}
	if c.AncestorHops <= 0 {
		c.AncestorHops = DefaultAncestorHops
	}
	if c.Separator == "" {
		c.Separator = textnorm.DefaultSeparator
	}
	if c.LineEnding == "" {
		c.LineEnding = textnorm.NativeLineEnding()
	}
	if c.CopyKey == "" {
		c.CopyKey = DefaultCopyKey
	}
	return c
}

// Chain retrieves selections and writes the clipboard.
type Chain struct {
	host       host.Host
	clip       clip.Backend
	cfg        Config
	strategies []Strategy

	sleep func(time.Duration)
}

// New returns a Chain with the direct and clipboard strategies, in that
// order.
func New(h host.Host, cb clip.Backend, cfg Config) *Chain {
	c := &Chain{
		host:  h,
		clip:  cb,
		cfg:   cfg.withDefaults(),
		sleep: time.Sleep,
	}
	c.strategies = []Strategy{
		{Method: MethodDirect, Fn: c.direct},
		{Method: MethodClipboard, Fn: c.viaClipboard},
	}
	return c
}

// Config returns the effective configuration.
func (c *Chain) Config() Config { return c.cfg }

// SetSeparator changes the append join policy.
func (c *Chain) SetSeparator(sep string) {
	if sep != "" {
		c.cfg.Separator = sep
	}
}

// SelectedText runs the strategies against n and returns the first
// non-empty result. ok is false when nothing is selected; strategy errors
// are logged and never returned.
func (c *Chain) SelectedText(ctx context.Context, n host.Node) (res Result, ok bool) {
	for _, s := range c.strategies {
		text, err := runStrategy(ctx, s, n)
		if err != nil {
			logStrategyError(s.Method, err)
			continue
		}
		if text != "" {
			slog.Debug("selection retrieved",
				"method", s.Method,
				"chars", len([]rune(text)),
				"preview", textnorm.Preview(text, previewRunes),
			)
			return Result{Text: text, Method: s.Method}, true
		}
		slog.Debug("strategy found no selection", "method", s.Method)
	}
	return Result{}, false
}

func runStrategy(ctx context.Context, s Strategy, n host.Node) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(KindFailed, string(s.Method), fmt.Errorf("panic: %v", r))
		}
	}()
	return s.Fn(ctx, n)
}

func logStrategyError(m Method, err error) {
	if errors.Is(err, ErrUnavailable) {
		slog.Debug("strategy unavailable", "method", m, "err", err)
		return
	}
	slog.Warn("strategy failed", "method", m, "err", err)
}

// direct reads the selection range of the active tree interceptor, or of
// the node itself. It never touches the clipboard.
func (c *Chain) direct(_ context.Context, n host.Node) (string, error) {
	const op = "direct"
	if n == nil {
		return "", newError(KindUnavailable, op, host.ErrNoFocus)
	}

	var src host.TextRanger
	if ic, ok := n.(host.Intercepted); ok {
		if ti := ic.TreeInterceptor(); ti != nil && ti.Active() {
			src = ti
		}
	}
	if src == nil {
		tr, ok := n.(host.TextRanger)
		if !ok {
			return "", newError(KindUnavailable, op, host.ErrUnsupported)
		}
		src = tr
	}

	r, err := src.SelectionRange()
	switch {
	case errors.Is(err, host.ErrUnsupported):
		return "", newError(KindUnavailable, op, err)
	case err != nil:
		return "", newError(KindFailed, op, err)
	case r == nil || r.Collapsed():
		return "", nil
	}

	text, err := r.ClipboardText()
	if err != nil {
		return "", newError(KindFailed, op, err)
	}
	return textnorm.Normalize(text), nil
}

// viaClipboard copies the selection by injecting the copy key and reading
// the clipboard. The previous clipboard text is restored on every path.
func (c *Chain) viaClipboard(ctx context.Context, _ host.Node) (string, error) {
	const op = "clipboard"

	saved, err := c.clip.ReadText()
	switch {
	case errors.Is(err, clip.ErrNonText):
		// There is no way to snapshot and restore a non-text payload.
		return "", newError(KindUnavailable, op, err)
	case err != nil:
		return "", newError(KindFailed, op, err)
	}

	defer c.restore(saved)

	if err := c.clip.Clear(); err != nil {
		return "", newError(KindFailed, op, err)
	}
	if err := c.host.SendKeys(ctx, c.cfg.CopyKey); err != nil {
		if errors.Is(err, host.ErrUnsupported) {
			return "", newError(KindUnavailable, op, err)
		}
		return "", newError(KindFailed, op, err)
	}
	c.sleep(c.cfg.FallbackDelay)

	got, err := c.clip.ReadText()
	if err != nil {
		return "", newError(KindFailed, op, err)
	}
	return textnorm.Normalize(got), nil
}

func (c *Chain) restore(saved string) {
	if err := c.clip.Clear(); err != nil {
		slog.Error("clipboard clear after fallback failed", "err", err)
	}
	if saved == "" {
		return
	}
	if err := c.clip.WriteText(saved); err != nil {
		slog.Error("clipboard restore failed", "err", err)
	}
}

// AppendResult reports the outcome of AppendToClipboard. Text is the joined
// clipboard text before conversion to the native line ending.
type AppendResult struct {
	Applied  bool
	Appended bool
	Text     string
	Err      error
}

// AppendToClipboard adds newText to the text already on the clipboard, or
// places it there alone when the clipboard is empty. Non-text clipboard
// contents are never overwritten.
func (c *Chain) AppendToClipboard(newText string) AppendResult {
	const op = "append"

	next := textnorm.Normalize(newText)
	if next == "" {
		return AppendResult{Err: newError(KindNothingSelected, op, nil)}
	}

	prev, err := c.clip.ReadText()
	if err != nil {
		// An unreadable clipboard is treated like a non-text one: its
		// contents are unknown, so they are left alone.
		return AppendResult{Err: newError(KindNonTextClipboard, op, err)}
	}
	if strings.TrimSpace(prev) == "" {
		prev = ""
	}

	joined, appended := textnorm.Join(prev, next, c.cfg.Separator)
	if err := c.clip.WriteText(textnorm.ToNative(joined, c.cfg.LineEnding)); err != nil {
		return AppendResult{Text: joined, Err: newError(KindWriteFailure, op, err)}
	}
	slog.Debug("clipboard updated",
		"appended", appended,
		"chars", len([]rune(joined)),
		"preview", textnorm.Preview(joined, previewRunes),
	)
	return AppendResult{Applied: true, Appended: appended, Text: joined}
}

// CopyText replaces the clipboard with text in the native line ending.
func (c *Chain) CopyText(text string) error {
	if err := c.clip.WriteText(textnorm.ToNative(textnorm.UnifyLineEndings(text), c.cfg.LineEnding)); err != nil {
		return newError(KindWriteFailure, "copy", err)
	}
	slog.Debug("clipboard set", "preview", textnorm.Preview(text, previewRunes))
	return nil
}

// ClearClipboard empties the clipboard.
func (c *Chain) ClearClipboard() error {
	if err := c.clip.Clear(); err != nil {
		return newError(KindWriteFailure, "clear", err)
	}
	return nil
}
