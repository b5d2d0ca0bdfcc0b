package signals

// pctChange calculates the fractional change from old to new.
// A zero base yields 0, never a division error.
func pctChange(old, newVal float64) float64 {
	if old == 0 {
		return 0
	}
	den := old
	if den < 0 {
		den = -den
	}
	return (newVal - old) / den
}

// growthRates returns the sequential fractional changes between
// consecutive values.
func growthRates(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	rates := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		rates = append(rates, pctChange(values[i-1], values[i]))
	}
	return rates
}

// flatOrUp reports whether the trailing three values are non-decreasing.
// Fewer than three values never qualifies.
func flatOrUp(values []float64) bool {
	n := len(values)
	return n >= 3 && values[n-1] >= values[n-2] && values[n-2] >= values[n-3]
}

// flatOrDown reports whether the trailing three values are non-increasing.
// Fewer than three values never qualifies.
func flatOrDown(values []float64) bool {
	n := len(values)
	return n >= 3 && values[n-1] <= values[n-2] && values[n-2] <= values[n-3]
}

// mean calculates the arithmetic mean, 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// tail returns the last n values, or all of them when fewer exist.
func tail(values []float64, n int) []float64 {
	if n <= 0 || len(values) == 0 {
		return nil
	}
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// safeDiv divides num by den, returning nil for a zero denominator.
func safeDiv(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}
