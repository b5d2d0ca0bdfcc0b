package signals

import (
	"fmt"

	"github.com/ternarybob/caveo/internal/facts"
	"github.com/ternarybob/caveo/internal/models"
)

// trailingQuarters is how much history the persistence checks consider.
const trailingQuarters = 8

// EvaluateCondition3 evaluates discretionary-spend and cash-burn
// persistence.
//
// Sub-signals over the trailing three quarters:
//   - discretionary_continues: capex flat-or-increasing, OR R&D spend
//     flat-or-increasing (R&D is optional; absent R&D contributes false).
//   - cash_burn_persists: operating cash flow flat-or-decreasing.
//   - no_slope_improvement: Condition 1's two sub-signals both firing.
//
// condition_3 = discretionary_continues AND cash_burn_persists AND
// no_slope_improvement.
//
// A missing capex or operating-cash-flow concept degrades to false with
// a "missing_concept" reason rather than failing the entity: the signal
// only gates the TRACK->TERMINAL transition, and an unobservable burn
// profile should hold an entity at TRACK, not freeze its evaluation.
func EvaluateCondition3(doc *models.CompanyFacts, c1 Condition1Result) Condition3Result {
	noSlope := c1.NoSlopeImprovement()

	capexTag, capexSeries, err := facts.Resolve(doc, facts.CapexTags...)
	if err != nil {
		return Condition3Result{
			Components: Condition3Components{NoSlopeImprovement: noSlope},
			Reason:     ReasonMissingConcept,
			Reasoning:  "No capex concept resolved; spend persistence unobservable",
		}
	}

	ocfTag, ocfSeries, err := facts.Resolve(doc, facts.OperatingCashFlowTags...)
	if err != nil {
		return Condition3Result{
			Components: Condition3Components{CapexTag: capexTag, NoSlopeImprovement: noSlope},
			Reason:     ReasonMissingConcept,
			Reasoning:  "No operating cash flow concept resolved; burn persistence unobservable",
		}
	}

	capexVals := tail(capexSeries.Values(), trailingQuarters)
	ocfVals := tail(ocfSeries.Values(), trailingQuarters)

	rndTag := ""
	var rndVals []float64
	if tag, rndSeries, err := facts.Resolve(doc, facts.ResearchAndDevelopmentTags...); err == nil {
		rndTag = tag
		rndVals = tail(rndSeries.Values(), trailingQuarters)
	}

	capexContinues := flatOrUp(capexVals)
	rndContinues := flatOrUp(rndVals)
	discretionaryContinues := capexContinues || rndContinues
	cashBurnPersists := flatOrDown(ocfVals)

	triggered := discretionaryContinues && cashBurnPersists && noSlope

	result := Condition3Result{
		Triggered: triggered,
		Components: Condition3Components{
			CapexTag:           capexTag,
			RNDTag:             rndTag,
			OCFTag:             ocfTag,
			CapexContinues:     capexContinues,
			RNDContinues:       rndContinues,
			CashBurnPersists:   cashBurnPersists,
			NoSlopeImprovement: noSlope,
		},
	}
	result.Reasoning = condition3Reasoning(result)
	return result
}

func condition3Reasoning(r Condition3Result) string {
	if r.Triggered {
		return "Discretionary spend continuing into persistent burn with no slope improvement"
	}
	held := []string{}
	if !(r.Components.CapexContinues || r.Components.RNDContinues) {
		held = append(held, "discretionary spend easing")
	}
	if !r.Components.CashBurnPersists {
		held = append(held, "burn improving")
	}
	if !r.Components.NoSlopeImprovement {
		held = append(held, "slope improving")
	}
	if len(held) == 0 {
		return "Not triggered"
	}
	msg := held[0]
	for _, h := range held[1:] {
		msg += ", " + h
	}
	return fmt.Sprintf("Held back: %s", msg)
}
