package ppo

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// surrogate evaluates the clipped surrogate loss for the given ratios
// and advantages
func surrogate(t *testing.T, ratio, advantages []float64,
	epsilon float64) float64 {
	t.Helper()

	g := G.NewGraph()
	r := G.NewVector(g, tensor.Float64, G.WithShape(len(ratio)),
		G.WithName("ratio"), G.WithValue(tensor.New(
			tensor.WithShape(len(ratio)),
			tensor.WithBacking(append([]float64{}, ratio...)),
		)))
	a := G.NewVector(g, tensor.Float64, G.WithShape(len(advantages)),
		G.WithName("advantages"), G.WithValue(tensor.New(
			tensor.WithShape(len(advantages)),
			tensor.WithBacking(append([]float64{}, advantages...)),
		)))

	loss, err := ClippedSurrogate(r, a, epsilon)
	if err != nil {
		t.Fatal(err)
	}
	var lossVal G.Value
	G.Read(loss, &lossVal)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}
	return lossVal.Data().(float64)
}

func TestClippedSurrogate(t *testing.T) {
	tests := []struct {
		name      string
		ratio     float64
		advantage float64
		want      float64
	}{
		{"clipped above", 1.2, 1, -1.1},
		{"unclipped below", 0.8, 1, -0.8},
		{"clipped below", 0.8, -1, 0.9},
		{"unclipped above", 1.2, -1, 1.2},
		{"upper boundary", 1.1, 1, -1.1},
		{"lower boundary", 0.9, 1, -0.9},
		{"unit ratio", 1, 0.5, -0.5},
		{"zero advantage", 1.7, 0, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := surrogate(t, []float64{test.ratio},
				[]float64{test.advantage}, 0.1)
			if math.Abs(got-test.want) > 1e-9 {
				t.Errorf("expected loss %v, got %v", test.want, got)
			}
		})
	}
}

func TestClippedSurrogateMean(t *testing.T) {
	ratio := []float64{1.2, 0.8, 0.8, 1.2}
	advantages := []float64{1, 1, -1, -1}

	// Mean of the single-sample losses -1.1, -0.8, 0.9, and 1.2
	want := 0.05
	if got := surrogate(t, ratio, advantages, 0.1); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected loss %v, got %v", want, got)
	}
}

func TestClippedSurrogateShapeMismatch(t *testing.T) {
	g := G.NewGraph()
	r := G.NewVector(g, tensor.Float64, G.WithShape(3), G.WithName("ratio"))
	a := G.NewVector(g, tensor.Float64, G.WithShape(2),
		G.WithName("advantages"))

	if _, err := ClippedSurrogate(r, a, 0.1); err == nil {
		t.Error("expected an error for mismatched shapes")
	}
}
