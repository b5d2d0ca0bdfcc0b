package signals

import (
	"fmt"
	"strings"

	"github.com/ternarybob/caveo/internal/models"
)

// Keywords is the fixed lexicon for the initiative/optics scan, in
// match-priority order: expansion and new-market language first, then
// repositioning framed as strategy, then capacity moves. All lowercase;
// matching is case-insensitive.
var Keywords = []string{
	// expansion / new markets
	"international expansion",
	"entering new markets",
	"new market",
	"expanding into",
	"launch in",
	// out of category / new lines
	"new product line",
	"product expansion",
	"new category",
	"outside the",
	// restructures framed as strategic
	"strategic review",
	"repositioning",
	"transformation",
	"new initiative",
	"growth initiative",
	// capacity moves
	"new facility",
	"manufacturing expansion",
	"capacity expansion",
}

// FindKeywordSnippet scans text for the first lexicon hit and returns
// the keyword with a context window of SnippetWindow characters on each
// side. Found is false when no keyword occurs.
func FindKeywordSnippet(text string) (keyword, snippet string, found bool) {
	lowered := strings.ToLower(text)
	for _, kw := range Keywords {
		idx := strings.Index(lowered, kw)
		if idx < 0 {
			continue
		}
		start := idx - SnippetWindow
		if start < 0 {
			start = 0
		}
		end := idx + len(kw) + SnippetWindow
		if end > len(text) {
			end = len(text)
		}
		return kw, strings.TrimSpace(text[start:end]), true
	}
	return "", "", false
}

// EvaluateCondition4 evaluates the initiative/optics signal over
// already-fetched disclosure texts, most recent first. The first text
// containing a lexicon hit supplies the matched keyword and snippet.
//
// condition_4 = keyword_found AND no_slope_improvement.
//
// The caller is responsible for the Condition 1 guardrail (only scan
// when condition_1 is already true) and for downgrading fetch failures
// to DefaultCondition4.
func EvaluateCondition4(texts []models.FilingText, c1 Condition1Result) Condition4Result {
	noSlope := c1.NoSlopeImprovement()

	scanned := 0
	for _, ft := range texts {
		scanned++
		kw, snippet, found := FindKeywordSnippet(ft.Text)
		if !found {
			continue
		}
		triggered := noSlope
		result := Condition4Result{
			Triggered:          triggered,
			InitiativeDetected: true,
			Components: Condition4Components{
				Accession:          ft.AccessionNumber,
				Keyword:            kw,
				Snippet:            snippet,
				FilingsScanned:     scanned,
				NoSlopeImprovement: noSlope,
			},
		}
		if triggered {
			result.Reasoning = fmt.Sprintf("Initiative language (%q) with no slope improvement", kw)
		} else {
			result.Reasoning = fmt.Sprintf("Initiative language (%q) but slope improving", kw)
		}
		return result
	}

	return Condition4Result{
		Components: Condition4Components{
			FilingsScanned:     scanned,
			NoSlopeImprovement: noSlope,
		},
		Reasoning: "No initiative language in scanned filings",
	}
}

// DefaultCondition4 is the degraded result used when the scan is
// skipped (Condition 1 guardrail) or the text fetch fails.
func DefaultCondition4(c1 Condition1Result, reason string) Condition4Result {
	return Condition4Result{
		Components: Condition4Components{
			NoSlopeImprovement: c1.NoSlopeImprovement(),
		},
		Reasoning: reason,
	}
}
