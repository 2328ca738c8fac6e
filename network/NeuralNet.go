// Package network implements neural network function approximators
// built on Gorgonia computational graphs.
package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NeuralNet implements a neural network on a Gorgonia computational
// graph. A NeuralNet has a fixed batch size; use CloneWithBatch to obtain
// a copy of the network that accepts a different batch size.
type NeuralNet interface {
	Graph() *G.ExprGraph
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int

	// Features returns the shape of a single input sample
	Features() []int
	Outputs() int

	SetInput([]float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}

// Layer implements a single layer of a NeuralNet
type Layer interface {
	fwd(*G.Node) (*G.Node, error)
	CloneTo(g *G.ExprGraph) Layer
	Weights() *G.Node
	Bias() *G.Node
	Activation() *Activation
}

// Set sets the weights of dest to be equal to the weights of source.
// Both networks must have the same architecture, but may have different
// batch sizes.
func Set(dest, source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(nodes) != len(sourceNodes) {
		return fmt.Errorf("set: cannot set %v learnables from %v learnables",
			len(nodes), len(sourceNodes))
	}

	for i, destLearnable := range nodes {
		if !destLearnable.Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("set: learnable %v shape mismatch: %v != %v",
				destLearnable.Name(), destLearnable.Shape(),
				sourceNodes[i].Shape())
		}
		value := sourceNodes[i].Value().(*tensor.Dense).Clone()
		if err := G.Let(destLearnable, value.(*tensor.Dense)); err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// cloneNode copies a learnable node and its value into graph g
func cloneNode(n *G.Node, g *G.ExprGraph) *G.Node {
	if n == nil {
		return nil
	}
	value := n.Value().(*tensor.Dense).Clone().(*tensor.Dense)

	return G.NewTensor(
		g,
		n.Dtype(),
		n.Dims(),
		G.WithShape(n.Shape()...),
		G.WithName(n.Name()),
		G.WithValue(value),
	)
}
