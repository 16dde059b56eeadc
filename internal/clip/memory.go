package clip

import "sync"

// Memory is an in-process clipboard. It backs headless runs and tests.
type Memory struct {
	mu      sync.Mutex
	text    string
	nonText bool
	writes  int

	// ReadErr and WriteErr, when set, are returned by every read or write.
	ReadErr  error
	WriteErr error
}

// NewMemory returns a Memory clipboard holding text.
func NewMemory(text string) *Memory {
	return &Memory{text: text}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return "", m.ReadErr
	}
	if m.nonText {
		return "", ErrNonText
	}
	return m.text, nil
}

func (m *Memory) WriteText(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.text = s
	m.nonText = false
	m.writes++
	return nil
}

func (m *Memory) Clear() error { return m.WriteText("") }

func (m *Memory) Close() {}

// SetNonText simulates an image or other non-text payload.
func (m *Memory) SetNonText() {
	m.mu.Lock()
	m.text = ""
	m.nonText = true
	m.mu.Unlock()
}

// Text returns the raw contents, ignoring ReadErr.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// NonText reports whether the clipboard holds a non-text payload.
func (m *Memory) NonText() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonText
}

// Writes counts successful writes, including clears.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
