package series

import (
	"math"
	"time"
)

// Point is a single waveform sample.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is a time-ordered list of samples. Callers keep it sorted ascending.
type Series []Point

const (
	ticksPerSecond = 10_000_000
	// unixEpochTicks is 1970-01-01T00:00:00Z expressed in 100ns ticks since 0001-01-01.
	unixEpochTicks int64 = 621_355_968_000_000_000
)

// ToTicks converts t to 100ns ticks since 0001-01-01T00:00:00Z.
func ToTicks(t time.Time) int64 {
	return t.Unix()*ticksPerSecond + int64(t.Nanosecond()/100) + unixEpochTicks
}

// FromTicks converts 100ns ticks since 0001-01-01T00:00:00Z to a UTC time.
func FromTicks(ticks int64) time.Time {
	rel := ticks - unixEpochTicks
	sec := rel / ticksPerSecond
	rem := rel % ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec, rem*100).UTC()
}

// Start returns the first timestamp, or the zero time for an empty series.
func (s Series) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Time
}

// Sorted reports whether timestamps never decrease.
func (s Series) Sorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Time.Before(s[i-1].Time) {
			return false
		}
	}
	return true
}

// Bounds returns min and max over the non-NaN values. ok is false when
// every value is NaN.
func (s Series) Bounds() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range s {
		if math.IsNaN(p.Value) {
			continue
		}
		ok = true
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}
