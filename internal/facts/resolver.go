// Package facts turns raw EDGAR companyfacts documents into clean,
// aligned quarterly series. Resolution is tolerant: malformed points
// are dropped, not surfaced, and a concept either yields a fully
// usable series or fails with a typed error naming every tag tried.
package facts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/caveo/internal/models"
)

// MinSeriesPoints is the minimum usable point count for a series to qualify.
const MinSeriesPoints = 2

// Canonical tag priority lists. Order matters: the first tag with a
// qualifying series wins. Ex-SPAC filers tag inconsistently, so each
// concept carries the aliases observed in practice.
var (
	RevenueTags = []string{
		"Revenues",
		"SalesRevenueNet",
		"RevenueFromContractWithCustomerExcludingAssessedTax",
	}
	GrossProfitTags = []string{
		"GrossProfit",
	}
	OperatingIncomeTags = []string{
		"OperatingIncomeLoss",
	}
	CapexTags = []string{
		"PaymentsToAcquirePropertyPlantAndEquipment",
		"PaymentsToAcquireProductiveAssets",
		"PaymentsToAcquireRealEstate",
	}
	ResearchAndDevelopmentTags = []string{
		"ResearchAndDevelopmentExpense",
	}
	OperatingCashFlowTags = []string{
		"NetCashProvidedByUsedInOperatingActivities",
	}
)

// acceptedForms are the periodic disclosure forms treated as quarterly-cadence.
var acceptedForms = map[string]bool{
	"10-Q": true,
	"10-K": true,
	"20-F": true,
}

// InsufficientSeriesError reports that no candidate tag yielded a series
// with at least MinSeriesPoints usable points.
type InsufficientSeriesError struct {
	Tags []string
}

func (e *InsufficientSeriesError) Error() string {
	return fmt.Sprintf("no series with at least %d points for tags: %s",
		MinSeriesPoints, strings.Join(e.Tags, ", "))
}

// Resolve tries tags in priority order and returns the chosen tag with
// its extracted series. A tag either fully qualifies (>= MinSeriesPoints
// after filtering) or is skipped entirely; when none qualify the error
// names all attempted tags.
func Resolve(doc *models.CompanyFacts, tags ...string) (string, models.TagSeries, error) {
	gaap := doc.USGAAP()
	for _, tag := range tags {
		tf, ok := gaap[tag]
		if !ok {
			continue
		}
		series := Extract(tf, tag)
		if series.Len() >= MinSeriesPoints {
			return tag, series, nil
		}
	}
	return "", models.TagSeries{}, &InsufficientSeriesError{Tags: append([]string{}, tags...)}
}

// Extract builds the quarterly series for a single tag.
//
// Extraction rules:
//  1. Prefer the USD unit; otherwise take the first unit key in sorted
//     order for determinism.
//  2. Keep points whose form is a periodic disclosure (10-Q, 10-K, 20-F)
//     and whose fiscal-period marker is a quarter label (Q1..Q4),
//     full-year (FY), or absent.
//  3. Drop points with a zero end date or a non-finite value.
//  4. Deduplicate by period-end date, keeping the point filed most
//     recently (ties keep the last one encountered; amendments restate values).
//  5. Sort ascending by period-end date.
func Extract(tf models.TagFacts, tag string) models.TagSeries {
	rows := unitRows(tf)
	if len(rows) == 0 {
		return models.TagSeries{Tag: tag}
	}

	type candidate struct {
		end   models.Date
		value float64
		filed models.Date
	}
	byEnd := map[string]candidate{}
	order := []string{}

	for _, r := range rows {
		if !quarterlyCadence(r) {
			continue
		}
		if r.End.IsZero() || !r.Val.IsFinite() {
			continue
		}
		key := r.End.String()
		prev, seen := byEnd[key]
		if seen && r.Filed.Before(prev.filed.Time) {
			continue
		}
		if !seen {
			order = append(order, key)
		}
		byEnd[key] = candidate{end: r.End, value: float64(r.Val), filed: r.Filed}
	}

	points := make([]models.QuarterPoint, 0, len(order))
	for _, key := range order {
		c := byEnd[key]
		points = append(points, models.QuarterPoint{End: c.end.Time, Value: c.value})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].End.Before(points[j].End) })

	return models.TagSeries{Tag: tag, Points: points}
}

// unitRows picks the unit to extract from: USD when present, else the
// first unit key in sorted order.
func unitRows(tf models.TagFacts) []models.RawPoint {
	if len(tf.Units) == 0 {
		return nil
	}
	if rows, ok := tf.Units["USD"]; ok {
		return rows
	}
	keys := make([]string, 0, len(tf.Units))
	for k := range tf.Units {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return tf.Units[keys[0]]
}

// quarterlyCadence reports whether a point plausibly represents a
// quarterly-cadence disclosure.
func quarterlyCadence(r models.RawPoint) bool {
	form := strings.ToUpper(strings.TrimSpace(r.Form))
	if !acceptedForms[form] {
		return false
	}
	fp := strings.ToUpper(strings.TrimSpace(r.FP))
	switch fp {
	case "", "FY", "Q1", "Q2", "Q3", "Q4":
		return true
	}
	return false
}

// LastEndDate returns the max period-end date across series, zero when
// every series is empty. Used as the evaluation's as-of anchor.
func LastEndDate(seriesList ...models.TagSeries) models.Date {
	var last models.Date
	for _, s := range seriesList {
		if s.Len() == 0 {
			continue
		}
		end := s.Points[s.Len()-1].End
		if last.IsZero() || end.After(last.Time) {
			last = models.Date{Time: end}
		}
	}
	return last
}
