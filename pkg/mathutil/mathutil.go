// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/growthlab/growth-forecast/pkg/constants"
)

// SafeRatio returns numerator/denominator when the denominator is strictly
// positive and zero otherwise. Every ratio in the simulation is total: a
// zero (or degenerate) denominator is expected steady-state behavior in
// early months, not an error.
func SafeRatio(numerator, denominator float64) float64 {
	if denominator > 0 {
		return numerator / denominator
	}
	return 0
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Min returns the minimum of two float64 values
func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of two float64 values
func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}
