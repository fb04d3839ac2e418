package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current time. Import runs and export logs stamp every
// record with its reading, always in UTC.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// OrSystem returns c, or the wall clock when c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
