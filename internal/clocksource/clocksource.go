// Package clocksource provides the monotonic tick source the Receiver uses
// for all window and scrape-cadence timing decisions.
package clocksource

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clocksource is a cheap-to-clone, internally-immutable-after-construction
// monotonic counter. Ticks are nanoseconds since the Clocksource was built,
// so Frequency is fixed and Convert is an identity conversion; both are
// still exposed as distinct operations so callers never reason in
// wall-clock time and so a future non-identity clocksource (e.g. a real
// TSC read) can drop in without changing call sites.
type Clocksource struct {
	clock clock.Clock
	start time.Time
}

// New builds a Clocksource backed by the real wall clock.
func New() Clocksource {
	return FromClock(clock.New())
}

// FromClock builds a Clocksource backed by the given clock.Clock, letting
// tests substitute a clock.Mock for deterministic window rotation.
func FromClock(c clock.Clock) Clocksource {
	return Clocksource{
		clock: c,
		start: c.Now(),
	}
}

// Counter returns the current tick count: nanoseconds elapsed since this
// Clocksource was constructed, measured on the monotonic reading the
// underlying clock.Clock's times carry. It is monotonic as long as the
// underlying clock.Clock is; non-monotonicity is a bug in the clock, and
// the only correction made here is clamping a reading earlier than
// construction to zero.
func (c Clocksource) Counter() uint64 {
	elapsed := c.clock.Now().Sub(c.start)
	if elapsed < 0 {
		// A non-monotonic underlying clock is a bug in that clock; clamp to
		// zero here rather than wrap a uint64 negative.
		return 0
	}
	return uint64(elapsed)
}

// Frequency returns ticks per second.
func (c Clocksource) Frequency() float64 {
	return 1e9
}

// Convert turns a raw tick value into nanoseconds.
func (c Clocksource) Convert(tick uint64) uint64 {
	return tick
}

// Clock exposes the underlying clock.Clock, e.g. so a scrape server can
// share the same time source for its own timeouts.
func (c Clocksource) Clock() clock.Clock {
	return c.clock
}
