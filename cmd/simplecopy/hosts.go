package main

import (
	"fmt"
	"log/slog"

	"go.klb.dev/simplecopy/internal/host"
	"go.klb.dev/simplecopy/internal/host/atspi"
	"go.klb.dev/simplecopy/internal/host/x11"
)

// newHost opens the desktop host named by kind (auto|atspi|x11|none). auto
// prefers AT-SPI with xdotool key injection, then plain X11, then none.
func newHost(kind string) (host.Host, error) {
	switch kind {
	case "none":
		return host.None{}, nil
	case "x11":
		return x11.New()
	case "atspi":
		return atspi.New(keySender(openX11()))
	case "auto", "":
	default:
		return nil, fmt.Errorf("unknown host %q (want auto, atspi, x11 or none)", kind)
	}

	x := openX11()
	h, err := atspi.New(keySender(x))
	if err == nil {
		return h, nil
	}
	slog.Debug("atspi host unavailable", "err", err)
	if x != nil {
		return x, nil
	}
	slog.Warn("no desktop host available; gestures will only report failures")
	return host.None{}, nil
}

func openX11() *x11.Host {
	x, err := x11.New()
	if err != nil {
		slog.Debug("x11 host unavailable", "err", err)
		return nil
	}
	return x
}

// keySender keeps a nil *x11.Host from becoming a non-nil interface.
func keySender(x *x11.Host) atspi.KeySender {
	if x == nil {
		return nil
	}
	return x
}
