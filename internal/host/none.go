package host

import "context"

// None is a Host with no desktop behind it. Nothing is ever focused and key
// injection is unsupported, so actions report their failure instead of
// acting.
type None struct{}

func (None) Name() string { return "none" }

func (None) Focus(context.Context) (Node, error) { return nil, ErrNoFocus }

func (None) Navigator(context.Context) (Node, error) { return nil, ErrNoFocus }

func (None) DocumentURL(context.Context) (string, error) { return "", ErrUnsupported }

func (None) SendKeys(context.Context, string) error { return ErrUnsupported }

func (None) Close() error { return nil }
