package signals

import (
	"fmt"

	"github.com/ternarybob/caveo/internal/facts"
	"github.com/ternarybob/caveo/internal/models"
)

// EvaluateCondition2 evaluates capital-expenditure spike pressure.
//
// Rule: over the trailing CapexMinQuarters quarterly capex points,
// ratio = most recent quarter / average of the prior four; the signal
// fires when ratio >= CapexSpikeRatio.
//
// Degraded outcomes, never errors:
//   - no capex concept resolves -> false, reason "missing_concept"
//   - fewer than CapexMinQuarters points -> false, reason "insufficient_quarters"
//   - zero baseline -> false, ratio omitted
func EvaluateCondition2(doc *models.CompanyFacts) Condition2Result {
	tag, series, err := facts.Resolve(doc, facts.CapexTags...)
	if err != nil {
		return Condition2Result{
			Reason:    ReasonMissingConcept,
			Reasoning: "No capex concept resolved; capex spike unobservable",
		}
	}

	vals := tail(series.Values(), CapexMinQuarters)
	if len(vals) < CapexMinQuarters {
		return Condition2Result{
			Components: Condition2Components{CapexTag: tag, Quarters: len(vals)},
			Reason:     ReasonInsufficientQuarters,
			Reasoning: fmt.Sprintf("Only %d capex quarters available, need %d",
				len(vals), CapexMinQuarters),
		}
	}

	last := vals[len(vals)-1]
	baseline := mean(vals[len(vals)-5 : len(vals)-1])
	ratio := safeDiv(last, baseline)

	spike := ratio != nil && *ratio >= CapexSpikeRatio

	result := Condition2Result{
		Triggered: spike,
		Components: Condition2Components{
			CapexTag: tag,
			Quarters: len(vals),
			Ratio:    ratio,
		},
	}
	switch {
	case ratio == nil:
		result.Reasoning = "Capex baseline is zero; spike ratio undefined"
	case spike:
		result.Reasoning = fmt.Sprintf("Capex spike: last quarter %.2fx the prior-4 average", *ratio)
	default:
		result.Reasoning = fmt.Sprintf("No capex spike: last quarter %.2fx the prior-4 average", *ratio)
	}
	return result
}
