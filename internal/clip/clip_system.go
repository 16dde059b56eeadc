//go:build darwin || linux || windows

package clip

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/clipboard"

	"go.klb.dev/simplecopy/internal/textnorm"
)

type systemBackend struct {
	mu sync.Mutex
}

// newSystem initialises the native clipboard. clipboard.Init is called here
// rather than in init() so that CLI sub-commands that never construct a
// Backend don't fail on headless systems.
func newSystem() (Backend, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &systemBackend{}, nil
}

func (b *systemBackend) Name() string { return "system clipboard" }

func (b *systemBackend) ReadText() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	text := clipboard.Read(clipboard.FmtText)
	if text == nil {
		if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
			return "", ErrNonText
		}
		return "", nil
	}
	s, err := textnorm.Decode(text)
	if errors.Is(err, textnorm.ErrNotText) {
		return "", fmt.Errorf("%w: %v", ErrNonText, err)
	}
	return s, err
}

func (b *systemBackend) WriteText(s string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(s))
	return nil
}

func (b *systemBackend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte{})
	return nil
}

func (b *systemBackend) Close() {}
