package quotes

import "math"

// PriceMetrics are the one-month overlays derived from a close series.
// Fields are nil when the underlying series cannot support them.
type PriceMetrics struct {
	Return1MPct   *float64 `json:"return_1m_pct"`
	Drawdown1MPct *float64 `json:"drawdown_1m_pct"`
	Vol1MDailyPct *float64 `json:"vol_1m_daily_pct"`
}

// ComputeMetrics derives the overlays from a one-month series:
// the period return, the worst peak-to-trough drawdown (negative, in
// percent), and the sample standard deviation of daily returns.
func ComputeMetrics(price *Price1M) PriceMetrics {
	if price == nil || len(price.Closes) < 2 {
		return PriceMetrics{}
	}

	ret := round2(price.PctChange)

	peak := price.Closes[0]
	worstDD := 0.0
	for _, c := range price.Closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			if dd := (c - peak) / peak * 100; dd < worstDD {
				worstDD = dd
			}
		}
	}
	drawdown := round2(worstDD)

	var daily []float64
	for i := 1; i < len(price.Closes); i++ {
		prev := price.Closes[i-1]
		if prev == 0 {
			continue
		}
		daily = append(daily, (price.Closes[i]-prev)/prev*100)
	}

	metrics := PriceMetrics{
		Return1MPct:   &ret,
		Drawdown1MPct: &drawdown,
	}
	if vol := stdev(daily); vol != nil {
		v := round2(*vol)
		metrics.Vol1MDailyPct = &v
	}
	return metrics
}

// stdev is the sample standard deviation, nil below two samples.
func stdev(xs []float64) *float64 {
	if len(xs) < 2 {
		return nil
	}
	m := 0.0
	for _, x := range xs {
		m += x
	}
	m /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		variance += (x - m) * (x - m)
	}
	variance /= float64(len(xs) - 1)

	s := math.Sqrt(variance)
	return &s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
