// Package loop provides the daemon's single event thread. Gesture taps, timer
// callbacks, config reloads and control requests are all posted here so the
// tap state and plugin state are only ever touched by one goroutine.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned when work is posted after Run has returned.
var ErrStopped = errors.New("event loop stopped")

// Timer is a cancellable deferred callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// was prevented; false means it already ran or was already stopped.
	Stop() bool
}

// Scheduler hands out the current time and deferred callbacks. Callbacks run
// on the scheduler's own thread.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Loop runs posted functions one at a time, in order.
type Loop struct {
	queue chan func()
	done  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// New returns a Loop whose queue holds up to buffer pending functions before
// Post blocks.
func New(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes posted functions until ctx is cancelled. It may only be
// called once; functions still queued when it returns are dropped.
func (l *Loop) Run(ctx context.Context) error {
	started := false
	l.startOnce.Do(func() { started = true })
	if !started {
		return errors.New("event loop already running")
	}
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-l.queue:
			l.exec(f)
		}
	}
}

func (l *Loop) exec(f func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event loop callback panicked", "panic", r)
		}
	}()
	f()
}

func (l *Loop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Post queues f for execution on the loop. It is safe to call from any
// goroutine, including the loop itself as long as the queue has room.
func (l *Loop) Post(f func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.queue <- f:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Call runs f on the loop and waits for it to finish. It must not be called
// from the loop itself.
func (l *Loop) Call(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		f()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time { return time.Now() }

// AfterFunc implements Scheduler. f runs on the loop after d unless the
// returned Timer is stopped first, even if the underlying timer has already
// expired and the callback is waiting in the queue.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	t := &timer{}
	t.t = time.AfterFunc(d, func() {
		if err := l.Post(func() {
			if t.claim() {
				f()
			}
		}); err != nil {
			slog.Debug("deferred callback dropped", "err", err)
		}
	})
	return t
}

type timer struct {
	t    *time.Timer
	used atomic.Bool
}

// claim marks the timer as consumed. Only the first of Stop and the
// callback wins.
func (t *timer) claim() bool { return t.used.CompareAndSwap(false, true) }

func (t *timer) Stop() bool {
	t.t.Stop()
	return t.claim()
}
