package models

import "time"

// QuarterPoint is one disclosed numeric fact for one concept at one
// fiscal period end.
type QuarterPoint struct {
	End   time.Time `json:"end"`
	Value float64   `json:"value"`
}

// TagSeries is an ordered series of QuarterPoints for a single concept
// tag. Invariant: strictly ascending period-end dates, no duplicates,
// all values finite.
type TagSeries struct {
	Tag    string         `json:"tag"`
	Points []QuarterPoint `json:"points"`
}

// Len returns the number of points in the series.
func (s TagSeries) Len() int {
	return len(s.Points)
}

// Values returns the point values in date order.
func (s TagSeries) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// Dates returns the period-end dates in order.
func (s TagSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.End
	}
	return dates
}

// Tail returns the last n values, or all values when fewer exist.
func (s TagSeries) Tail(n int) []float64 {
	values := s.Values()
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
