//go:build !darwin && !windows && !linux

package clip

import "fmt"

// newSystem has no native clipboard on this platform; New falls through to
// the command backend.
func newSystem() (Backend, error) {
	return nil, fmt.Errorf("%w: no native clipboard on this platform", ErrUnavailable)
}
