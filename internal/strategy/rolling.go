package strategy

import "math"

// rollingMean returns the simple moving average series. Entry i averages the
// window ending at i; indices before minPeriods-1 average the available prefix.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))

	var sum float64

	for i, v := range values {
		sum += v

		if i >= window {
			sum -= values[i-window]
		}

		n := i + 1
		if n > window {
			n = window
		}

		out[i] = sum / float64(n)
	}

	return out
}

// rollingStd returns the sample standard deviation of the trailing window.
// Entries with fewer than two points in the window are zero.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))

	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}

		n := i - lo + 1
		if n < 2 {
			continue
		}

		var mean float64
		for _, v := range values[lo : i+1] {
			mean += v
		}
		mean /= float64(n)

		var ss float64
		for _, v := range values[lo : i+1] {
			d := v - mean
			ss += d * d
		}

		out[i] = math.Sqrt(ss / float64(n-1))
	}

	return out
}

// ewma returns the exponentially weighted moving average with the given span,
// seeded at the first value (the adjust=false recurrence).
func ewma(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]

	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}

	return out
}
