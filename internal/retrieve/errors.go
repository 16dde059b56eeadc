package retrieve

import (
	"errors"
	"fmt"
)

// Kind classifies a retrieval or clipboard failure.
type Kind string

const (
	// KindUnavailable: the focused node does not expose the capability. The
	// chain moves on to the next strategy.
	KindUnavailable Kind = "retrieval unavailable"
	// KindFailed: the capability exists but raised an error. Logged, then
	// the chain moves on.
	KindFailed Kind = "retrieval failed"
	// KindNonTextClipboard: append refused because the clipboard holds
	// something other than text.
	KindNonTextClipboard Kind = "non-text clipboard"
	// KindWriteFailure: the clipboard write failed; contents left as they were.
	KindWriteFailure Kind = "clipboard write failure"
	// KindNothingSelected: every strategy ran and found no text.
	KindNothingSelected Kind = "nothing selected"
)

// Error is a Kind-tagged error. Op names the strategy or operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrFailed)
// works for wrapped causes.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnavailable      = &Error{Kind: KindUnavailable}
	ErrFailed           = &Error{Kind: KindFailed}
	ErrNonTextClipboard = &Error{Kind: KindNonTextClipboard}
	ErrWriteFailure     = &Error{Kind: KindWriteFailure}
	ErrNothingSelected  = &Error{Kind: KindNothingSelected}
)

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
