package facts

import (
	"github.com/ternarybob/caveo/internal/models"
)

// Align restricts two series to their shared period-end dates and
// returns the paired values in ascending date order. A date absent from
// either series is excluded; there is no interpolation or carry-forward.
// Used wherever a ratio (margin = profit/revenue) needs both concepts
// measured at the same period end.
func Align(a, b models.TagSeries) (av, bv []float64) {
	if a.Len() == 0 || b.Len() == 0 {
		return nil, nil
	}

	bByEnd := make(map[string]float64, b.Len())
	for _, p := range b.Points {
		bByEnd[p.End.Format("2006-01-02")] = p.Value
	}

	// a.Points are already ascending, so iteration order is the output order.
	for _, p := range a.Points {
		if bVal, ok := bByEnd[p.End.Format("2006-01-02")]; ok {
			av = append(av, p.Value)
			bv = append(bv, bVal)
		}
	}
	return av, bv
}
