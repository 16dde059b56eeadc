package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/simplecopy/internal/actions"
	"go.klb.dev/simplecopy/internal/clip"
	"go.klb.dev/simplecopy/internal/control"
	"go.klb.dev/simplecopy/internal/feedback"
	"go.klb.dev/simplecopy/internal/ipc"
	"go.klb.dev/simplecopy/internal/loop"
	"go.klb.dev/simplecopy/internal/retrieve"
)

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simplecopy daemon",
		Long: `Starts the daemon. It tracks the focused object, listens for gesture
taps on the control socket and carries out the bound clipboard actions.

The control socket serves gRPC and HTTP/JSON:
  POST /v1/gestures/{gesture}:tap
  POST /v1/append:toggle
  GET  /v1/status

Config file search order:
  /etc/simplecopy/simplecopy.toml
  $HOME/.config/simplecopy/simplecopy.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → SIMPLECOPY_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("host", "auto", "desktop host: auto|atspi|x11|none")
	f.String("clipboard", "auto", "clipboard backend: auto|system|command|memory")
	f.StringSlice("feedback", []string{"speech", "log"}, "feedback channels: speech,notify,log")
	f.Bool("enabled", true, "run actions (false passes every gesture through)")
	f.Bool("append", true, "start with append mode on")
	f.Duration("settle-window", 0, "tap disambiguation window (default 500ms)")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(parent context.Context, v *viper.Viper) error {
	setupLogging(v)

	s, err := loadSettings(v)
	if err != nil {
		return err
	}

	h, err := newHost(s.Host)
	if err != nil {
		return fmt.Errorf("host: %w", err)
	}
	defer h.Close()

	cb := clip.New(s.Clipboard)
	defer cb.Close()

	chain := retrieve.New(h, cb, s.Chain)
	say := feedback.New(s.Feedback)
	lp := loop.New(0)
	plugin := actions.New(h, chain, say, lp, s.Options)
	defer plugin.Close()

	ln, err := ipc.Listen()
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchConfig(v, lp, plugin, chain, s)

	served := make(chan struct{})
	go func() {
		defer close(served)
		backend := &control.LoopBackend{Loop: lp, Plugin: plugin, Version: Version}
		if err := control.Serve(ctx, ln, control.NewService(backend)); err != nil {
			slog.Error("control server failed", "err", err)
			cancel()
		}
	}()

	slog.Info("simplecopy running",
		"version", Version,
		"host", h.Name(),
		"clipboard", cb.Name(),
		"socket", ipc.SocketPath(),
		"gestures", len(plugin.Options().Bindings),
		"enabled", s.Options.Enabled,
		"append", s.Options.Append,
	)

	err = lp.Run(ctx)
	<-served
	slog.Info("simplecopy stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchConfig re-applies the config file on change. The runtime append
// toggle survives a reload unless the file's own append value changed.
func watchConfig(v *viper.Viper, lp *loop.Loop, plugin *actions.Plugin, chain *retrieve.Chain, initial settings) {
	if v.ConfigFileUsed() == "" {
		return
	}
	lastAppend := initial.Options.Append
	v.OnConfigChange(func(e fsnotify.Event) {
		s, err := loadSettings(v)
		if err != nil {
			slog.Warn("config reload rejected", "file", e.Name, "err", err)
			return
		}
		fileAppend := s.Options.Append
		changed := fileAppend != lastAppend
		lastAppend = fileAppend

		if err := lp.Post(func() {
			if !changed {
				s.Options.Append = plugin.Options().Append
			}
			plugin.Apply(s.Options)
			chain.SetSeparator(s.Chain.Separator)
		}); err != nil {
			slog.Debug("config reload dropped", "err", err)
			return
		}
		slog.Info("config reloaded", "file", e.Name, "op", e.Op.String())
	})
	v.WatchConfig()
}
