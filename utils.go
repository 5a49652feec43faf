package autotune

import (
	"math"

	"golang.org/x/exp/constraints"
)

//////
// Helper functions.
//////

// clamp constrains v to the closed interval [lo, hi].
//
// Returns:
// - lo when v < lo, hi when v > hi, v otherwise.
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// linspace generates n evenly spaced values covering the closed interval
// [min, max], endpoints included.
//
// Parameters:
// - min: Lower bound of the interval
// - max: Upper bound of the interval
// - n: Number of values to generate
//
// Returns:
// - []float64: New slice of n values in ascending order
//
// Important notes:
// - n < 1 returns an empty slice
// - n == 1 returns the midpoint of the interval
// - min == max returns n copies of the same value
// - Allocates a new slice; O(n) time, single pass.
func linspace(min, max float64, n int) []float64 {
	if n < 1 {
		return []float64{}
	}

	if n == 1 {
		return []float64{(min + max) / 2}
	}

	values := make([]float64, n)

	step := (max - min) / float64(n-1)

	for i := range values {
		values[i] = min + float64(i)*step
	}

	// Pin the last value to the exact upper bound. Accumulated floating
	// point error must never push a generated value outside the interval.
	values[n-1] = max

	return values
}

// toFloat64 coerces any numeric value to float64.
//
// Parameters:
// - v: Value to coerce; all built-in integer and float types are accepted
//
// Returns:
// - float64: The converted value
// - bool: false when v is not a numeric type
//
// Important notes:
// - Needed because decoded schemas carry numbers as any: JSON decodes every
//   number to float64, YAML decodes whole numbers to int
// - Booleans and strings are not numbers and return false
// - Conversion from large int64 values may lose precision, which is
//   acceptable for bound checks.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ipow computes base raised to exp using integer arithmetic.
//
// Important notes:
// - exp < 0 returns 0 (integer powers of negative exponents truncate)
// - Overflow is not detected; callers keep base and exp small (halving
//   factors and rung counts).
func ipow(base, exp int) int {
	if exp < 0 {
		return 0
	}

	result := 1

	for i := 0; i < exp; i++ {
		result *= base
	}

	return result
}

// logFloor computes floor(log_base(x)) for x >= 1 and base >= 2.
//
// Returns:
// - The largest k such that base^k <= x; 0 when x < base.
//
// Important notes:
// - Computed by repeated integer-free multiplication rather than
//   math.Log to avoid floating point edge cases at exact powers.
func logFloor(x float64, base int) int {
	if x < float64(base) {
		return 0
	}

	k := 0

	power := 1.0

	for power*float64(base) <= x {
		power *= float64(base)
		k++
	}

	return k
}

// cloneConfig creates a shallow copy of a configuration.
//
// Important notes:
// - Values are copied by assignment; configurations hold scalars only, so a
//   shallow copy is a full copy
// - Returns nil for a nil input
// - Strategies and the harness exchange configurations across goroutines;
//   copies keep their bookkeeping free of shared map writes.
func cloneConfig(config Config) Config {
	if config == nil {
		return nil
	}

	clone := make(Config, len(config))

	for name, value := range config {
		clone[name] = value
	}

	return clone
}

// isNaN reports whether the score marks a failed trial.
func isNaN(score float64) bool {
	return math.IsNaN(score)
}

// nan returns the quiet NaN used to mark failed trials.
func nan() float64 {
	return math.NaN()
}
