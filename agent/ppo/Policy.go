package ppo

import (
	"encoding/gob"
	"fmt"
	"io"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/pongppo/buffer/trajectory"
	"github.com/samuelfneumann/pongppo/network"
	"github.com/samuelfneumann/pongppo/utils/op"
)

// checkpointVersion is incremented whenever the saved weight format
// changes
const checkpointVersion = 1

// Policy maps stacked states to unnormalized action scores (logits) with
// a convolutional network. The Policy holds a network with a batch size
// of one for acting; training copies of it are created for each update
// with newLossGraph.
type Policy struct {
	net        network.NeuralNet
	vm         G.VM
	stateShape []int
	numActions int
}

// NewPolicy returns a new Policy for states of shape
// (frames, height, width)
func NewPolicy(stateShape []int, numActions int, convs []network.ConvLayer,
	hiddenSizes []int, init G.InitWFn) (*Policy, error) {
	net, err := network.NewConvNet(stateShape, 1, numActions, G.NewGraph(),
		convs, hiddenSizes, init)
	if err != nil {
		return nil, fmt.Errorf("newPolicy: %v", err)
	}

	return &Policy{
		net:        net,
		vm:         G.NewTapeMachine(net.Graph()),
		stateShape: append([]int{}, stateShape...),
		numActions: numActions,
	}, nil
}

// Logits returns the action scores of the policy in a single stacked
// state of shape (1, frames, height, width)
func (p *Policy) Logits(state *tensor.Dense) ([]float64, error) {
	want := append([]int{1}, p.stateShape...)
	if !state.Shape().Eq(tensor.Shape(want)) {
		return nil, fmt.Errorf("logits: state shape %v does not match "+
			"expected shape %v", state.Shape(), want)
	}

	data, ok := state.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("logits: state must be of type float64")
	}
	if err := p.net.SetInput(data); err != nil {
		return nil, fmt.Errorf("logits: %v", err)
	}
	defer p.vm.Reset()
	if err := p.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("logits: %v", err)
	}

	out := p.net.Output().Data().([]float64)
	return append([]float64{}, out...), nil
}

// Loss returns the clipped surrogate loss of the policy on a batch
// without changing any weights
func (p *Policy) Loss(b trajectory.Batch, epsilon float64) (float64,
	error) {
	l, err := newLossGraph(p.net, b.Size, p.numActions, epsilon, false)
	if err != nil {
		return 0, fmt.Errorf("loss: %v", err)
	}
	defer l.close()

	loss, err := l.run(b)
	if err != nil {
		return 0, fmt.Errorf("loss: %v", err)
	}
	return loss, nil
}

// Weights returns a snapshot of the policy's weights
func (p *Policy) Weights() network.Weights {
	return network.Snapshot(p.net)
}

// checkpoint is the serialized form of a Policy
type checkpoint struct {
	Version    int
	StateShape []int
	NumActions int
	Weights    network.Weights
}

// Save writes the policy's weights to w
func (p *Policy) Save(w io.Writer) error {
	c := checkpoint{
		Version:    checkpointVersion,
		StateShape: p.stateShape,
		NumActions: p.numActions,
		Weights:    p.Weights(),
	}
	if err := gob.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("save: could not encode weights: %v", err)
	}
	return nil
}

// Load replaces the policy's weights with those read from r. The saved
// policy must have the same architecture.
func (p *Policy) Load(r io.Reader) error {
	var c checkpoint
	if err := gob.NewDecoder(r).Decode(&c); err != nil {
		return fmt.Errorf("load: could not decode weights: %v", err)
	}

	if c.Version != checkpointVersion {
		return fmt.Errorf("load: unsupported checkpoint version %v",
			c.Version)
	}
	if !tensor.Shape(c.StateShape).Eq(tensor.Shape(p.stateShape)) ||
		c.NumActions != p.numActions {
		return fmt.Errorf("load: saved policy for states %v and %v "+
			"actions does not match policy for states %v and %v actions",
			c.StateShape, c.NumActions, p.stateShape, p.numActions)
	}

	if err := network.Restore(p.net, c.Weights); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	return nil
}

// Close releases the resources held by the policy
func (p *Policy) Close() error {
	return p.vm.Close()
}

// lossGraph is a copy of a policy network with a fixed batch size, extended
// with the clipped surrogate loss
type lossGraph struct {
	net        network.NeuralNet
	actions    *G.Node
	oldProbs   *G.Node
	advantages *G.Node

	loss    *G.Node
	lossVal G.Value
	vm      G.VM
}

// newLossGraph copies src to a new graph with the given batch size and
// adds the clipped surrogate loss. If learn is true, gradients of the
// loss with respect to the copy's weights are added to the graph.
func newLossGraph(src network.NeuralNet, batch, numActions int,
	epsilon float64, learn bool) (*lossGraph, error) {
	net, err := src.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("newLossGraph: %v", err)
	}
	g := net.Graph()

	actions := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, numActions),
		G.WithName("actions"),
		G.WithInit(G.Zeroes()),
	)
	oldProbs := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("oldProbs"),
		G.WithInit(G.Ones()),
	)
	advantages := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("advantages"),
		G.WithInit(G.Zeroes()),
	)

	// Probability ratio of the recorded actions under the current and
	// behaviour policies
	logProb, err := op.SelectedLogProb(net.Prediction(), actions)
	if err != nil {
		return nil, fmt.Errorf("newLossGraph: %v", err)
	}
	prob, err := G.Exp(logProb)
	if err != nil {
		return nil, fmt.Errorf("newLossGraph: %v", err)
	}
	ratio, err := G.HadamardDiv(prob, oldProbs)
	if err != nil {
		return nil, fmt.Errorf("newLossGraph: %v", err)
	}

	loss, err := ClippedSurrogate(ratio, advantages, epsilon)
	if err != nil {
		return nil, fmt.Errorf("newLossGraph: %v", err)
	}

	l := &lossGraph{
		net:        net,
		actions:    actions,
		oldProbs:   oldProbs,
		advantages: advantages,
		loss:       loss,
	}
	G.Read(loss, &l.lossVal)

	if learn {
		if _, err := G.Grad(loss, net.Learnables()...); err != nil {
			return nil, fmt.Errorf("newLossGraph: could not compute "+
				"gradient: %v", err)
		}
		l.vm = G.NewTapeMachine(g, G.BindDualValues(net.Learnables()...))
	} else {
		l.vm = G.NewTapeMachine(g)
	}

	return l, nil
}

// set binds a batch to the inputs of the graph
func (l *lossGraph) set(b trajectory.Batch) error {
	batch := l.net.BatchSize()
	if b.Size != batch {
		return fmt.Errorf("set: batch of size %v given to graph of batch "+
			"size %v", b.Size, batch)
	}

	if err := l.net.SetInput(b.States); err != nil {
		return fmt.Errorf("set: %v", err)
	}

	inputs := []struct {
		node *G.Node
		data []float64
	}{
		{l.actions, b.OneHot},
		{l.oldProbs, b.Probs},
		{l.advantages, b.Advantages},
	}
	for _, in := range inputs {
		if len(in.data) != in.node.Shape().TotalSize() {
			return fmt.Errorf("set: %v needs %v values but got %v",
				in.node.Name(), in.node.Shape().TotalSize(), len(in.data))
		}
		value := tensor.New(
			tensor.WithShape(in.node.Shape()...),
			tensor.WithBacking(in.data),
		)
		if err := G.Let(in.node, value); err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// run computes the loss on a batch
func (l *lossGraph) run(b trajectory.Batch) (float64, error) {
	if err := l.set(b); err != nil {
		return 0, fmt.Errorf("run: %v", err)
	}
	defer l.vm.Reset()
	if err := l.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("run: %v", err)
	}

	return l.lossVal.Data().(float64), nil
}

// step computes the loss on a batch and takes one solver step on the
// graph's weights
func (l *lossGraph) step(b trajectory.Batch, s G.Solver) (float64, error) {
	if err := l.set(b); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	defer l.vm.Reset()
	if err := l.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}

	loss := l.lossVal.Data().(float64)
	if err := s.Step(l.net.Model()); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	return loss, nil
}

// close releases the graph's VM
func (l *lossGraph) close() error {
	return l.vm.Close()
}
