package control

import (
	"context"

	"go.klb.dev/simplecopy/internal/actions"
	"go.klb.dev/simplecopy/internal/loop"
)

// LoopBackend runs control requests against a Plugin on its event loop.
type LoopBackend struct {
	Loop    *loop.Loop
	Plugin  *actions.Plugin
	Version string
}

func (b *LoopBackend) Tap(ctx context.Context, gesture string) error {
	var err error
	if cerr := b.Loop.Call(ctx, func() { err = b.Plugin.Tap(gesture) }); cerr != nil {
		return cerr
	}
	return err
}

func (b *LoopBackend) ToggleAppend(ctx context.Context) (bool, error) {
	var on bool
	if err := b.Loop.Call(ctx, func() { on = b.Plugin.ToggleAppend() }); err != nil {
		return false, err
	}
	return on, nil
}

func (b *LoopBackend) Status(ctx context.Context) (map[string]any, error) {
	var st actions.Status
	if err := b.Loop.Call(ctx, func() { st = b.Plugin.Status() }); err != nil {
		return nil, err
	}
	m := StatusMap(st)
	if b.Version != "" {
		m["version"] = b.Version
	}
	return m, nil
}

// StatusMap flattens a plugin status into JSON-compatible values.
func StatusMap(st actions.Status) map[string]any {
	gestures := make(map[string]any, len(st.Gestures))
	for g, b := range st.Gestures {
		gestures[g] = map[string]any{
			"single": string(b.Single),
			"multi":  string(b.Multi),
		}
	}
	armed := make([]any, 0, len(st.Armed))
	for _, g := range st.Armed {
		armed = append(armed, g)
	}
	return map[string]any{
		"host":          st.Host,
		"enabled":       st.Enabled,
		"append":        st.Append,
		"copied":        st.Copied,
		"settle_window": st.SettleWindow.String(),
		"gestures":      gestures,
		"armed":         armed,
		"taps":          st.Stats.Taps,
		"dropped":       st.Stats.Dropped,
		"actions":       st.Stats.Actions,
		"last_action":   string(st.Stats.LastAction),
		"last_method":   string(st.Stats.LastMethod),
		"last_message":  st.Stats.LastMessage,
	}
}
