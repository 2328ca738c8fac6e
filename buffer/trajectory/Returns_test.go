package trajectory

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func TestDiscountedReturns(t *testing.T) {
	tests := []struct {
		name    string
		rewards []float64
		gamma   float64
		want    []float64
	}{
		{
			name:    "single point",
			rewards: []float64{0, 1, 0},
			gamma:   0.99,
			want:    []float64{0.99, 1, 0},
		},
		{
			name:    "reset at each point",
			rewards: []float64{0, 0, 1, 0, 0, -1},
			gamma:   0.99,
			want:    []float64{0.9801, 0.99, 1, -0.9801, -0.99, -1},
		},
		{
			name:    "no reward",
			rewards: []float64{0, 0, 0},
			gamma:   0.99,
			want:    []float64{0, 0, 0},
		},
		{
			name:    "empty",
			rewards: []float64{},
			gamma:   0.99,
			want:    []float64{},
		},
	}

	for _, test := range tests {
		got := DiscountedReturns(test.rewards, test.gamma)
		if !floats.EqualApprox(got, test.want, 1e-12) {
			t.Errorf("%v: expected %v, got %v", test.name, test.want, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	returns := DiscountedReturns([]float64{0, 0, 1, 0, 0, -1}, 0.99)

	normalized, ok := Normalize(returns, 1e-8)
	if !ok {
		t.Fatal("expected returns to be normalized")
	}

	mean, std := stat.MeanStdDev(normalized, nil)
	if math.Abs(mean) > 1e-12 {
		t.Errorf("expected mean 0, got %v", mean)
	}
	if math.Abs(std-1) > 1e-12 {
		t.Errorf("expected standard deviation 1, got %v", std)
	}

	// The input is left untouched
	if returns[2] != 1 {
		t.Errorf("input modified: %v", returns)
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"constant", []float64{0.5, 0.5, 0.5}},
		{"single", []float64{1}},
		{"empty", []float64{}},
	}

	for _, test := range tests {
		got, ok := Normalize(test.values, 1e-8)
		if ok {
			t.Errorf("%v: expected normalization to be skipped", test.name)
		}
		if !floats.Equal(got, test.values) {
			t.Errorf("%v: expected values unchanged, got %v", test.name, got)
		}
		for _, v := range got {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("%v: non-finite value %v", test.name, v)
			}
		}
	}
}
