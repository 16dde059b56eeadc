// Package tap turns raw gesture key presses into single- or multi-tap
// actions. Each gesture binding keeps its own TapState; a tap arms a deferred
// callback that is cancelled and rescheduled by every further tap inside the
// settle window, so an action fires exactly once per burst.
//
// A Disambiguator is not safe for concurrent use. All calls, and the
// scheduler's callbacks, must happen on the same event thread.
package tap

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.klb.dev/simplecopy/internal/loop"
)

// DefaultSettleWindow is how long a gesture waits for a further tap.
const DefaultSettleWindow = 500 * time.Millisecond

// ErrUnknownGesture is returned by OnTap for gestures that were never
// registered.
var ErrUnknownGesture = errors.New("unknown gesture")

// Binding holds the handlers of one gesture. Either may be nil.
type Binding struct {
	Single func()
	Multi  func()
}

// State is the per-gesture tap bookkeeping.
type State struct {
	Count   int
	LastTap time.Time
	pending loop.Timer
}

// Armed reports whether a deferred action is waiting to fire.
func (s *State) Armed() bool { return s.pending != nil }

// Disambiguator owns the tap state of every registered gesture.
type Disambiguator struct {
	sched    loop.Scheduler
	window   time.Duration
	bindings map[string]Binding
	states   map[string]*State
}

// New returns a Disambiguator using sched for time and deferred callbacks.
func New(sched loop.Scheduler, window time.Duration) *Disambiguator {
	if window <= 0 {
		window = DefaultSettleWindow
	}
	return &Disambiguator{
		sched:    sched,
		window:   window,
		bindings: make(map[string]Binding),
		states:   make(map[string]*State),
	}
}

// Register binds handlers to gesture, replacing any previous binding. An
// armed burst for the gesture keeps its count and fires the new handlers.
func (d *Disambiguator) Register(gesture string, b Binding) {
	d.bindings[gesture] = b
	if _, ok := d.states[gesture]; !ok {
		d.states[gesture] = &State{}
	}
}

// Unregister drops a gesture and cancels its pending action.
func (d *Disambiguator) Unregister(gesture string) {
	if st, ok := d.states[gesture]; ok && st.pending != nil {
		st.pending.Stop()
	}
	delete(d.bindings, gesture)
	delete(d.states, gesture)
}

// Gestures returns the registered gesture names, sorted.
func (d *Disambiguator) Gestures() []string {
	out := make([]string, 0, len(d.bindings))
	for g := range d.bindings {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Window returns the current settle window.
func (d *Disambiguator) Window() time.Duration { return d.window }

// SetWindow changes the settle window for taps that arrive from now on.
func (d *Disambiguator) SetWindow(w time.Duration) {
	if w > 0 {
		d.window = w
	}
}

// State returns a copy of the tap state of gesture.
func (d *Disambiguator) State(gesture string) (State, bool) {
	st, ok := d.states[gesture]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// OnTap records a tap of gesture at now and (re)arms its deferred action.
// It never blocks.
func (d *Disambiguator) OnTap(gesture string, now time.Time) error {
	st, ok := d.states[gesture]
	if !ok {
		return ErrUnknownGesture
	}

	if !st.LastTap.IsZero() && now.Sub(st.LastTap) > d.window {
		if st.pending != nil {
			// The previous burst's timer has expired but its callback has
			// not reached us yet. Settle it before starting a new burst.
			if st.pending.Stop() {
				d.fire(gesture, st)
			}
		}
		st.Count = 0
	}

	st.Count++
	st.LastTap = now
	if st.pending != nil {
		st.pending.Stop()
	}

	var t loop.Timer
	t = d.sched.AfterFunc(d.window, func() {
		if st.pending != t {
			return
		}
		d.fire(gesture, st)
	})
	st.pending = t

	slog.Debug("tap", "gesture", gesture, "count", st.Count)
	return nil
}

func (d *Disambiguator) fire(gesture string, st *State) {
	count := st.Count
	st.Count = 0
	st.pending = nil

	b := d.bindings[gesture]
	var h func()
	kind := "single"
	switch {
	case count == 1:
		h = b.Single
	case count >= 2:
		h = b.Multi
		kind = "multi"
	}
	slog.Debug("tap settled", "gesture", gesture, "count", count, "kind", kind)
	if h != nil {
		h()
	}
}

// Close cancels every pending action.
func (d *Disambiguator) Close() {
	for _, st := range d.states {
		if st.pending != nil {
			st.pending.Stop()
			st.pending = nil
		}
		st.Count = 0
	}
}
