package op

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// run evaluates node after binding the input vector in to data
func run(t *testing.T, g *G.ExprGraph, in *G.Node, data []float64,
	node *G.Node) []float64 {
	t.Helper()

	var val G.Value
	G.Read(node, &val)

	if in != nil {
		dense := tensor.New(tensor.WithShape(in.Shape()...),
			tensor.WithBacking(data))
		if err := G.Let(in, dense); err != nil {
			t.Fatal(err)
		}
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}

	switch v := val.Data().(type) {
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return out
	case float64:
		return []float64{v}
	default:
		t.Fatalf("unexpected value type %T", v)
		return nil
	}
}

func TestClip(t *testing.T) {
	g := G.NewGraph()
	in := G.NewVector(g, tensor.Float64, G.WithShape(6), G.WithName("in"))

	clipped, err := Clip(in, 0.9, 1.1)
	if err != nil {
		t.Fatal(err)
	}

	data := []float64{0.5, 0.9, 1.0, 1.1, 1.5, -3}
	want := []float64{0.9, 0.9, 1.0, 1.1, 1.1, 0.9}
	got := run(t, g, in, data, clipped)

	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("clip(%v): expected %v, got %v", data[i], want[i],
				got[i])
		}
	}
}

func TestClipInvalidBounds(t *testing.T) {
	g := G.NewGraph()
	in := G.NewVector(g, tensor.Float64, G.WithShape(2), G.WithName("in"))
	if _, err := Clip(in, 1, 0); err == nil {
		t.Error("expected error for min > max")
	}
}

func TestMin(t *testing.T) {
	g := G.NewGraph()
	a := G.NewVector(g, tensor.Float64, G.WithShape(3), G.WithName("a"))
	b := G.NewVector(g, tensor.Float64, G.WithShape(3), G.WithName("b"),
		G.WithValue(tensor.New(tensor.WithBacking([]float64{0, 2, 5}))))

	min, err := Min(a, b)
	if err != nil {
		t.Fatal(err)
	}

	got := run(t, g, a, []float64{1, 2, 3}, min)
	want := []float64{0, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %v: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSelectedLogProb(t *testing.T) {
	g := G.NewGraph()
	logits := G.NewMatrix(g, tensor.Float64, G.WithShape(2, 3),
		G.WithName("logits"))
	actions := G.NewMatrix(g, tensor.Float64, G.WithShape(2, 3),
		G.WithName("actions"), G.WithValue(tensor.New(
			tensor.WithShape(2, 3),
			tensor.WithBacking([]float64{0, 1, 0, 0, 0, 1}),
		)))

	logProb, err := SelectedLogProb(logits, actions)
	if err != nil {
		t.Fatal(err)
	}

	data := []float64{1, 2, 3, 1000, 1000, 1000}
	got := run(t, g, logits, data, logProb)

	norm := math.Log(math.Exp(1) + math.Exp(2) + math.Exp(3))
	want := []float64{2 - norm, math.Log(1.0 / 3.0)}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("row %v: expected %v, got %v", i, want[i], got[i])
		}
	}
}
