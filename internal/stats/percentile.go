package stats

import "math"

// Percentile returns the nearest-rank percentile of a sorted ascending slice:
// index = ceil(p/100 * n) - 1, clamped to [0, n-1]. Returns 0 for an empty
// slice. Nearest-rank avoids interpolation so results are exact and
// reproducible across runs.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// RoundMs converts seconds to milliseconds rounded to 3 decimals, the dual
// representation required by the export contract.
func RoundMs(seconds float64) float64 {
	return math.Round(seconds*1000*1000) / 1000
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStdev is the n-1 denominator standard deviation. A single-value set
// has stdev 0.
func sampleStdev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}
