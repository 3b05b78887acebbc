// Package mathx holds the small numeric helpers used to snap computed
// exposure values onto the standard stop tables.
package mathx

import "math"

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
func Round(x, unit float64) float64 {
	return math.Round(x/unit) * unit
}

// Nearest returns the index of the element of vals closest to x by absolute
// difference.  Ties go to the first element encountered, as do values that
// are not comparable (NaN or infinite distances).  It returns -1 for an
// empty slice.
func Nearest(vals []float64, x float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, v := range vals {
		d := math.Abs(v - x)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Ints converts a slice of ints to float64, for use with Nearest.
func Ints(is []int) []float64 {
	out := make([]float64, len(is))
	for i, v := range is {
		out[i] = float64(v)
	}
	return out
}
