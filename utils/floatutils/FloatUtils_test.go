package floatutils

import (
	"math"
	"testing"
)

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{1, 0, 1, 1},
	}

	for _, test := range tests {
		if got := Clip(test.value, test.min, test.max); got != test.want {
			t.Errorf("Clip(%v, %v, %v): expected %v, got %v", test.value,
				test.min, test.max, test.want, got)
		}
	}
}

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{3, 1, 3, 2})
	if max != 3 {
		t.Errorf("expected max 3, got %v", max)
	}
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Errorf("expected indices [0 2], got %v", indices)
	}

	_, indices = MaxSlice([]float64{5})
	if len(indices) != 1 || indices[0] != 0 {
		t.Errorf("expected indices [0], got %v", indices)
	}
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float64{1000, 1000, 1000})
	for i, p := range probs {
		if math.Abs(p-1.0/3.0) > 1e-12 {
			t.Errorf("index %v: expected 1/3, got %v", i, p)
		}
	}

	probs = Softmax([]float64{0, math.Log(3)})
	if math.Abs(probs[0]-0.25) > 1e-12 || math.Abs(probs[1]-0.75) > 1e-12 {
		t.Errorf("expected [0.25 0.75], got %v", probs)
	}
}
