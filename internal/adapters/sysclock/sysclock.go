// Package sysclock implements ports.Clock against the real wall clock and
// time.AfterFunc, the production side of the Clock port the FSMs use for
// retransmit/timeout scheduling (ports/timer.go).
package sysclock

import (
	"time"

	"github.com/lcalzada-xor/wired/internal/core/ports"
)

// Clock is the production ports.Clock implementation.
type Clock struct{}

// New returns a Clock backed by the real wall clock.
func New() Clock { return Clock{} }

func (Clock) Now() time.Time { return time.Now() }

func (Clock) AfterFunc(d time.Duration, fn func()) ports.Timer {
	return time.AfterFunc(d, fn)
}
