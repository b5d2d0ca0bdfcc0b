package signals

import (
	"testing"
)

func TestPctChange(t *testing.T) {
	tests := []struct {
		name     string
		old      float64
		newVal   float64
		expected float64
	}{
		{"growth", 100, 110, 0.10},
		{"decline", 100, 95, -0.05},
		{"zero base", 0, 50, 0},
		{"negative base uses magnitude", -100, -50, 0.5},
		{"negative to deeper negative", -100, -150, -0.5},
		{"no change", 75, 75, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pctChange(tt.old, tt.newVal)
			if got != tt.expected {
				t.Errorf("pctChange(%v, %v) = %v, want %v", tt.old, tt.newVal, got, tt.expected)
			}
		})
	}
}

func TestGrowthRates(t *testing.T) {
	rates := growthRates([]float64{100, 95, 88})
	if len(rates) != 2 {
		t.Fatalf("len = %d, want 2", len(rates))
	}
	if rates[0] != -0.05 {
		t.Errorf("rates[0] = %v, want -0.05", rates[0])
	}
	if diff := rates[1] - (88-95)/95.0; diff != 0 {
		t.Errorf("rates[1] = %v, want %v", rates[1], (88-95)/95.0)
	}

	if growthRates([]float64{100}) != nil {
		t.Error("single value should yield nil rates")
	}
	if growthRates(nil) != nil {
		t.Error("nil input should yield nil rates")
	}
}

func TestFlatOrUp(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected bool
	}{
		{"rising", []float64{1, 2, 3}, true},
		{"flat", []float64{5, 5, 5}, true},
		{"dip then recover ignores older values", []float64{9, 1, 2, 3}, true},
		{"falling", []float64{3, 2, 1}, false},
		{"late drop", []float64{1, 5, 4}, false},
		{"two values", []float64{1, 2}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flatOrUp(tt.values); got != tt.expected {
				t.Errorf("flatOrUp(%v) = %v, want %v", tt.values, got, tt.expected)
			}
		})
	}
}

func TestFlatOrDown(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected bool
	}{
		{"falling", []float64{30, 20, 10}, true},
		{"flat", []float64{5, 5, 5}, true},
		{"late bounce", []float64{30, 10, 20}, false},
		{"two values", []float64{2, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flatOrDown(tt.values); got != tt.expected {
				t.Errorf("flatOrDown(%v) = %v, want %v", tt.values, got, tt.expected)
			}
		})
	}
}

func TestTail(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}

	got := tail(vals, 3)
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Errorf("tail(_, 3) = %v, want [3 4 5]", got)
	}
	if got := tail(vals, 10); len(got) != 5 {
		t.Errorf("tail larger than input = %v, want all values", got)
	}
	if tail(vals, 0) != nil {
		t.Error("tail(_, 0) should be nil")
	}
	if tail(nil, 3) != nil {
		t.Error("tail(nil, _) should be nil")
	}
}

func TestSafeDiv(t *testing.T) {
	if got := safeDiv(30, 10); got == nil || *got != 3 {
		t.Errorf("safeDiv(30, 10) = %v, want 3", got)
	}
	if got := safeDiv(5, 0); got != nil {
		t.Errorf("safeDiv(5, 0) = %v, want nil", *got)
	}
}
