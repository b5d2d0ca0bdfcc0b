package signals

import (
	"fmt"

	"github.com/ternarybob/caveo/internal/facts"
	"github.com/ternarybob/caveo/internal/models"
)

// EvaluateCondition1 evaluates demand/margin pressure, the hard gate
// for all escalation.
//
// Sub-signals:
//   - revenue_deceleration: quarter-over-quarter growth across the last
//     two transitions is strictly decreasing, with each rate at or below
//     RevenueDropThreshold. Fewer than 3 points: false, not an error.
//   - margin_failure: margin = profit/revenue over date-aligned periods,
//     gross profit preferred with operating income as the fallback proxy
//     (flagged in the diagnostics); strictly decreasing over the
//     trailing three margins with the latest at or below
//     LowMarginThreshold. Zero-revenue periods are excluded, not errors.
//
// condition_1 = revenue_deceleration OR margin_failure.
//
// Returns *facts.InsufficientSeriesError when revenue or both margin
// routes fail to resolve; the caller skips the entity for the cycle.
func EvaluateCondition1(doc *models.CompanyFacts) (Condition1Result, error) {
	revTag, revSeries, err := facts.Resolve(doc, facts.RevenueTags...)
	if err != nil {
		return Condition1Result{}, err
	}
	revVals := revSeries.Values()

	rates := growthRates(tail(revVals, 4))
	revenueDeceleration := decelerating(rates)

	marginSource := MarginSourceGrossProfit
	marginTag, profitSeries, err := facts.Resolve(doc, facts.GrossProfitTags...)
	if err != nil {
		marginSource = MarginSourceOperatingIncome
		marginTag, profitSeries, err = facts.Resolve(doc, facts.OperatingIncomeTags...)
		if err != nil {
			return Condition1Result{}, err
		}
	}

	profitVals, alignedRev := facts.Align(profitSeries, revSeries)
	margins := make([]float64, 0, len(profitVals))
	for i := range profitVals {
		if alignedRev[i] == 0 {
			continue
		}
		margins = append(margins, profitVals[i]/alignedRev[i])
	}
	marginFailure := marginFailing(margins)

	triggered := revenueDeceleration || marginFailure

	result := Condition1Result{
		Triggered:           triggered,
		RevenueDeceleration: revenueDeceleration,
		MarginFailure:       marginFailure,
		Components: Condition1Components{
			RevenueTag:   revTag,
			MarginTag:    marginTag,
			MarginSource: marginSource,
			GrowthRates:  rates,
			Margins:      tail(margins, 4),
			LastDate:     facts.LastEndDate(revSeries).String(),
		},
	}
	result.Reasoning = condition1Reasoning(result)
	return result, nil
}

// decelerating applies the revenue deceleration rule to a growth-rate
// sequence: the last two rates strictly decreasing and each at or below
// the drop threshold.
func decelerating(rates []float64) bool {
	n := len(rates)
	if n < 2 {
		return false
	}
	prev, last := rates[n-2], rates[n-1]
	return last < prev && prev <= RevenueDropThreshold && last <= RevenueDropThreshold
}

// marginFailing applies the margin failure rule: trailing three margins
// strictly decreasing with the latest at or below the low-margin
// threshold.
func marginFailing(margins []float64) bool {
	n := len(margins)
	if n < 3 {
		return false
	}
	m1, m2, m3 := margins[n-3], margins[n-2], margins[n-1]
	return m3 < m2 && m2 < m1 && m3 <= LowMarginThreshold
}

func condition1Reasoning(r Condition1Result) string {
	switch {
	case r.RevenueDeceleration && r.MarginFailure:
		return fmt.Sprintf("Revenue decelerating and margin failing (%s via %s)",
			r.Components.MarginTag, r.Components.MarginSource)
	case r.RevenueDeceleration:
		return "Revenue decelerating; margin holding"
	case r.MarginFailure:
		return fmt.Sprintf("Margin failing (%s via %s); revenue growth not decelerating",
			r.Components.MarginTag, r.Components.MarginSource)
	default:
		return "No demand/margin pressure"
	}
}
