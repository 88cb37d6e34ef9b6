// Package utils provides shared utility functions.
package utils

import "math"

// RoundTo rounds a value to the given number of decimal places.
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// PctDiff returns the absolute percentage difference of b from a.
// Returns 0 when a is zero.
func PctDiff(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	return math.Abs(b-a) / math.Abs(a) * 100
}

// ClampInt restricts an integer to the given range.
func ClampInt(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
