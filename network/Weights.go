package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Weights is a serializable snapshot of the learnable parameters of a
// NeuralNet, in the order given by the network's Learnables.
type Weights struct {
	Names  []string
	Shapes [][]int
	Values [][]float64
}

// Snapshot copies the current learnable parameters of net
func Snapshot(net NeuralNet) Weights {
	learnables := net.Learnables()
	w := Weights{
		Names:  make([]string, len(learnables)),
		Shapes: make([][]int, len(learnables)),
		Values: make([][]float64, len(learnables)),
	}

	for i, node := range learnables {
		data := node.Value().Data().([]float64)

		w.Names[i] = node.Name()
		w.Shapes[i] = append([]int{}, node.Shape()...)
		w.Values[i] = append([]float64{}, data...)
	}
	return w
}

// Restore sets the learnable parameters of net to the snapshot w. The
// snapshot must have been taken from a network with the same
// architecture.
func Restore(net NeuralNet, w Weights) error {
	learnables := net.Learnables()
	if len(w.Values) != len(learnables) || len(w.Shapes) != len(learnables) {
		return fmt.Errorf("restore: snapshot has %v parameters but network "+
			"has %v", len(w.Values), len(learnables))
	}

	for i, node := range learnables {
		if !node.Shape().Eq(tensor.Shape(w.Shapes[i])) {
			return fmt.Errorf("restore: parameter %v has shape %v but "+
				"snapshot has shape %v", node.Name(), node.Shape(),
				w.Shapes[i])
		}
		if len(w.Values[i]) != node.Shape().TotalSize() {
			return fmt.Errorf("restore: parameter %v needs %v values but "+
				"snapshot has %v", node.Name(), node.Shape().TotalSize(),
				len(w.Values[i]))
		}

		backing := append([]float64{}, w.Values[i]...)
		value := tensor.New(tensor.WithShape(w.Shapes[i]...),
			tensor.WithBacking(backing))
		if err := G.Let(node, value); err != nil {
			return fmt.Errorf("restore: %v", err)
		}
	}
	return nil
}

// Equal returns whether two snapshots hold identical parameters
func (w Weights) Equal(other Weights) bool {
	if len(w.Values) != len(other.Values) {
		return false
	}
	for i := range w.Values {
		if !tensor.Shape(w.Shapes[i]).Eq(tensor.Shape(other.Shapes[i])) ||
			len(w.Values[i]) != len(other.Values[i]) {
			return false
		}
		for j := range w.Values[i] {
			if w.Values[i][j] != other.Values[i][j] {
				return false
			}
		}
	}
	return true
}
