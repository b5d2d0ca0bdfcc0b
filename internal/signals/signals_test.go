package signals

import (
	"time"

	"github.com/ternarybob/caveo/internal/models"
)

// quarterEnd returns the i-th calendar quarter end starting 2023-03-31.
func quarterEnd(i int) models.Date {
	year := 2023 + i/4
	switch i % 4 {
	case 0:
		return models.NewDate(year, time.March, 31)
	case 1:
		return models.NewDate(year, time.June, 30)
	case 2:
		return models.NewDate(year, time.September, 30)
	default:
		return models.NewDate(year, time.December, 31)
	}
}

// factsDoc builds a companyfacts document where each tag reports the
// given values at shared sequential quarter ends.
func factsDoc(tags map[string][]float64) *models.CompanyFacts {
	gaap := map[string]models.TagFacts{}
	fps := []string{"Q1", "Q2", "Q3", "Q4"}
	for tag, values := range tags {
		points := make([]models.RawPoint, 0, len(values))
		for i, v := range values {
			points = append(points, models.RawPoint{
				End:   quarterEnd(i),
				Val:   models.Amount(v),
				Form:  "10-Q",
				FP:    fps[i%4],
				Filed: quarterEnd(i + 1),
			})
		}
		gaap[tag] = models.TagFacts{Units: map[string][]models.RawPoint{"USD": points}}
	}
	return &models.CompanyFacts{Facts: map[string]map[string]models.TagFacts{"us-gaap": gaap}}
}

// pressuredC1 is a Condition 1 result with both sub-signals firing,
// for feeding Conditions 3 and 4.
func pressuredC1() Condition1Result {
	return Condition1Result{
		Triggered:           true,
		RevenueDeceleration: true,
		MarginFailure:       true,
	}
}
