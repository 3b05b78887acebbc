// Package util contains misc internal utilities.
package util

import (
	"math"
	"time"
)

// SecsToDuration converts a floating point number of seconds to a time.Duration,
// rounded to the nearest nanosecond.
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * 1e9))
}

// ClampInt clamps x to the closed interval [low, high]
func ClampInt(x, low, high int) int {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}
