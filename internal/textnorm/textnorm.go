// Package textnorm normalizes text moving between the focused application and
// the clipboard: printable filtering, line-ending unification, append joins,
// and decoding raw clipboard bytes into UTF-8.
package textnorm

import (
	"runtime"
	"strings"
	"unicode"
)

// DefaultSeparator is placed between the existing clipboard text and an
// appended selection, before conversion to the native line ending.
const DefaultSeparator = "\n\n"

// LineEnding is the newline sequence written to the system clipboard.
type LineEnding string

const (
	LF   LineEnding = "\n"
	CRLF LineEnding = "\r\n"
)

// NativeLineEnding returns CRLF on Windows and LF everywhere else.
func NativeLineEnding() LineEnding {
	if runtime.GOOS == "windows" {
		return CRLF
	}
	return LF
}

// ParseLineEnding converts a config value (auto|lf|crlf) to a LineEnding.
func ParseLineEnding(s string) LineEnding {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lf", "unix":
		return LF
	case "crlf", "windows", "dos":
		return CRLF
	default:
		return NativeLineEnding()
	}
}

// Normalize drops characters that are neither printable nor CR, LF or space,
// unifies line endings to "\n" and trims surrounding whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\r' || r == '\n' || r == ' ' || unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(UnifyLineEndings(b.String()))
}

// UnifyLineEndings rewrites "\r\n" and lone "\r" as "\n".
func UnifyLineEndings(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// ToNative converts "\n"-terminated text to the given line ending.
func ToNative(s string, le LineEnding) string {
	if le == LF || le == "" {
		return s
	}
	return strings.ReplaceAll(UnifyLineEndings(s), "\n", string(le))
}

// Join appends next to prev for a multi-selection clipboard entry. Both sides
// are unified to "\n"; trailing newlines of prev and leading newlines of next
// are dropped so exactly one sep sits between them. An empty prev yields the
// unified next alone and appended=false.
func Join(prev, next, sep string) (joined string, appended bool) {
	next = UnifyLineEndings(next)
	if prev == "" {
		return next, false
	}
	prev = strings.TrimRight(UnifyLineEndings(prev), "\n")
	next = strings.TrimLeft(next, "\n")
	return prev + UnifyLineEndings(sep) + next, true
}

// Preview shortens s to n runes for log output.
func Preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
