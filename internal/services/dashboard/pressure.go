package dashboard

import (
	"github.com/ternarybob/caveo/internal/models"
	pkgmodels "github.com/ternarybob/caveo/pkg/models"
)

// Condition weights and price-overlay thresholds for the 0-10 pressure
// score. The flags carry the fundamentals; the overlays add at most 6
// points on top, clamped.
const (
	weightCondition1 = 3
	weightCondition2 = 2
	weightCondition3 = 2
	weightCondition4 = 3

	returnSevere   = -30.0
	returnBad      = -15.0
	returnWeak     = -7.0
	drawdownSevere = -35.0
	drawdownBad    = -20.0
	volHot         = 4.0 // daily vol in percent terms

	scoreMax = 10
)

// pressureScore folds the condition flags and price overlays into the
// clamped 0-10 score.
func pressureScore(flags models.ConditionFlags, metrics pkgmodels.PriceMetrics) int {
	score := 0
	if flags.Condition1 {
		score += weightCondition1
	}
	if flags.Condition2 {
		score += weightCondition2
	}
	if flags.Condition3 {
		score += weightCondition3
	}
	if flags.Condition4 {
		score += weightCondition4
	}

	if r := metrics.Return1MPct; r != nil {
		switch {
		case *r <= returnSevere:
			score += 3
		case *r <= returnBad:
			score += 2
		case *r <= returnWeak:
			score += 1
		}
	}

	if dd := metrics.Drawdown1MPct; dd != nil {
		switch {
		case *dd <= drawdownSevere:
			score += 2
		case *dd <= drawdownBad:
			score += 1
		}
	}

	if vol := metrics.Vol1MDailyPct; vol != nil && *vol >= volHot {
		score++
	}

	if score < 0 {
		score = 0
	}
	if score > scoreMax {
		score = scoreMax
	}
	return score
}

func pressureGrade(score int) string {
	switch {
	case score <= 2:
		return pkgmodels.GradeStable
	case score <= 5:
		return pkgmodels.GradeWatch
	case score <= 8:
		return pkgmodels.GradeElevated
	default:
		return pkgmodels.GradeCritical
	}
}

// triggeredConditions lists the firing flags as C1..C4 labels. Always
// non-nil so the payload exports [] rather than null.
func triggeredConditions(flags models.ConditionFlags) []string {
	triggers := []string{}
	if flags.Condition1 {
		triggers = append(triggers, "C1")
	}
	if flags.Condition2 {
		triggers = append(triggers, "C2")
	}
	if flags.Condition3 {
		triggers = append(triggers, "C3")
	}
	if flags.Condition4 {
		triggers = append(triggers, "C4")
	}
	return triggers
}

// gradeRow applies the full grading rule to one latest-state row.
// Out-of-scope companies grade OUT_OF_SCOPE with a null score.
func gradeRow(inScope bool, flags models.ConditionFlags, metrics pkgmodels.PriceMetrics) (*int, string, []string) {
	if !inScope {
		return nil, pkgmodels.GradeOutOfScope, []string{}
	}
	score := pressureScore(flags, metrics)
	return &score, pressureGrade(score), triggeredConditions(flags)
}
