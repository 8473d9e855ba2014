package clock

import "time"

// Clock supplies "now" for every component that needs today's date.
// Injecting it keeps date-boundary behavior deterministic in tests and
// allows what-if queries against an arbitrary as-of date.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Fixed returns a Clock pinned to t. Test helper.
func Fixed(t time.Time) Clock { return fixedClock{at: t} }

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }
