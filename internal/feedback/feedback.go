// Package feedback delivers short user-facing messages: spoken through the
// platform speech command, shown as a desktop notification, or logged.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"
)

// Level tells channels how to present a message.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Announcer presents a message to the user. Announce must not block the
// caller for long; slow channels deliver in the background.
type Announcer interface {
	Announce(msg string, level Level)
}

// Multi fans a message out to several channels.
type Multi []Announcer

func (m Multi) Announce(msg string, level Level) {
	for _, a := range m {
		a.Announce(msg, level)
	}
}

// Log writes announcements to the structured log.
type Log struct{}

func (Log) Announce(msg string, level Level) {
	if level == LevelError {
		slog.Warn("announce", "msg", msg)
		return
	}
	slog.Info("announce", "msg", msg)
}

// Notify shows a desktop notification, and beeps on errors.
type Notify struct {
	Title string
}

func (n Notify) Announce(msg string, level Level) {
	title := n.Title
	if title == "" {
		title = "simplecopy"
	}
	go func() {
		if level == LevelError {
			if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
				slog.Debug("beep failed", "err", err)
			}
		}
		if err := beeep.Notify(title, msg, ""); err != nil {
			slog.Debug("notification failed", "err", err)
		}
	}()
}

// Speech speaks messages with an external command (spd-say, say). A new
// message interrupts the previous one.
type Speech struct {
	Command string
	Args    []string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSpeech returns the platform speech command, or an error if none is
// installed. Windows has no command-line synthesizer; use notify there.
func NewSpeech() (*Speech, error) {
	type candidate struct {
		cmd  string
		args []string
	}
	var candidates []candidate
	switch runtime.GOOS {
	case "darwin":
		candidates = []candidate{{cmd: "say"}}
	default:
		candidates = []candidate{{cmd: "spd-say", args: []string{"--wait"}}, {cmd: "espeak-ng"}, {cmd: "espeak"}}
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c.cmd); err == nil {
			return &Speech{Command: path, Args: c.args}, nil
		}
	}
	return nil, fmt.Errorf("no speech command found")
}

func (s *Speech) Announce(msg string, _ Level) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	args := append(append([]string(nil), s.Args...), msg)
	cmd := exec.CommandContext(ctx, s.Command, args...)
	if err := cmd.Start(); err != nil {
		slog.Debug("speech failed", "cmd", s.Command, "err", err)
		cancel()
		return
	}
	go func() {
		_ = cmd.Wait()
		cancel()
	}()
}

// New builds an Announcer from channel names (speech, notify, log).
// Unknown or unavailable channels are skipped with a warning; the log
// channel is always available.
func New(channels []string) Announcer {
	var m Multi
	for _, ch := range channels {
		switch strings.ToLower(strings.TrimSpace(ch)) {
		case "speech", "speak":
			sp, err := NewSpeech()
			if err != nil {
				slog.Warn("speech feedback unavailable", "err", err)
				continue
			}
			m = append(m, sp)
		case "notify", "notification":
			m = append(m, Notify{})
		case "log":
			m = append(m, Log{})
		case "":
		default:
			slog.Warn("unknown feedback channel", "channel", ch)
		}
	}
	if len(m) == 0 {
		return Log{}
	}
	return m
}

// Recorder keeps announcements in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

// Message is one recorded announcement.
type Message struct {
	Text  string
	Level Level
}

func (r *Recorder) Announce(msg string, level Level) {
	r.mu.Lock()
	r.msgs = append(r.msgs, Message{Text: msg, Level: level})
	r.mu.Unlock()
}

// Messages returns the recorded announcements.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Last returns the most recent announcement text, or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return ""
	}
	return r.msgs[len(r.msgs)-1].Text
}
