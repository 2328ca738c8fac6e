package initwfn

import (
	"testing"

	"gorgonia.org/tensor"
)

func TestNew(t *testing.T) {
	for _, name := range []string{"GlorotU", "glorotn", "HeU", "HEN",
		"Zeroes"} {
		init, err := New(name, 1.0)
		if err != nil {
			t.Errorf("%v: %v", name, err)
			continue
		}
		if init.InitWFn() == nil {
			t.Errorf("%v: Gorgonia initializer not created", name)
		}
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New("orthogonal", 1.0); err == nil {
		t.Error("expected error for unknown initializer")
	}
	if _, err := New("GlorotU", 0); err == nil {
		t.Error("expected error for zero gain")
	}
}

func TestInitializedValues(t *testing.T) {
	init, err := New("Zeroes", 1.0)
	if err != nil {
		t.Fatal(err)
	}
	values := init.InitWFn()(tensor.Float64, 2, 3).([]float64)
	for i, v := range values {
		if v != 0 {
			t.Errorf("index %v: expected 0, got %v", i, v)
		}
	}
}
