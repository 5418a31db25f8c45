package core

import (
	"fmt"
	"math"
	"time"
)

// Time is a timestamp in nanoseconds since the Unix epoch.
type Time int64

// Seconds converts fractional seconds to a Time, rounding to the nearest
// nanosecond.
func Seconds(s float64) Time {
	return Time(math.Round(s * 1e9))
}

// FromTime converts a time.Time.
func FromTime(t time.Time) Time {
	return Time(t.UnixNano())
}

// Std returns t as a UTC time.Time.
func (t Time) Std() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

func (t Time) Nanoseconds() int64 {
	return int64(t)
}

func (t Time) Seconds() float64 {
	return float64(t) / 1e9
}

// IsZero reports whether t is the zero timestamp.
func (t Time) IsZero() bool {
	return t == 0
}

// String formats t as seconds with nanosecond precision, e.g. "10.000000000".
func (t Time) String() string {
	sign := ""
	n := int64(t)
	if n < 0 {
		sign = "-"
		n = -n
	}
	return fmt.Sprintf("%s%d.%09d", sign, n/1e9, n%1e9)
}
