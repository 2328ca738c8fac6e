package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// convNet implements a convolutional neural network. Inputs of shape
// (batch, channels, height, width) pass through a stack of ReLU
// convolutional layers, are flattened, and then pass through a stack of
// ReLU fully connected layers followed by a linear output layer.
type convNet struct {
	g          *G.ExprGraph
	convLayers []Layer
	fcLayers   []Layer
	input      *G.Node
	features   []int
	numOutputs int
	batchSize  int
	flatSize   int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewConvNet creates and returns a new convolutional network on graph g.
// The features argument is the (channels, height, width) shape of a
// single input sample. The network has len(convs) convolutional layers,
// len(hiddenSizes) hidden fully connected layers, and a final linear
// layer with outputs units. All weights are initialized with init and
// all biases are initialized to zero.
func NewConvNet(features []int, batch, outputs int, g *G.ExprGraph,
	convs []ConvLayer, hiddenSizes []int, init G.InitWFn) (NeuralNet,
	error) {
	if len(features) != 3 {
		return nil, fmt.Errorf("newConvNet: features must be (channels, "+
			"height, width) but got %v", features)
	}
	if batch <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("newConvNet: batch size and outputs must "+
			"be positive, got %v and %v", batch, outputs)
	}

	channels, height, width := features[0], features[1], features[2]
	convLayers := make([]Layer, len(convs))
	for i, c := range convs {
		height, width = c.OutputSize(height), c.OutputSize(width)
		if c.Filters <= 0 || height <= 0 || width <= 0 {
			return nil, fmt.Errorf("newConvNet: convolutional layer %v "+
				"%+v produces empty output for input of shape %v", i, c,
				features)
		}

		convLayers[i] = newConvLayer(g, channels, c, ReLU(), init,
			fmt.Sprintf("conv%d", i))
		channels = c.Filters
	}
	flatSize := channels * height * width

	fcLayers := make([]Layer, 0, len(hiddenSizes)+1)
	in := flatSize
	for i, size := range hiddenSizes {
		if size <= 0 {
			return nil, fmt.Errorf("newConvNet: hidden layer %v has "+
				"non-positive size %v", i, size)
		}
		fcLayers = append(fcLayers, newFCLayer(g, in, size, ReLU(), init,
			fmt.Sprintf("fc%d", i)))
		in = size
	}
	fcLayers = append(fcLayers, newFCLayer(g, in, outputs, Identity(), init,
		fmt.Sprintf("fc%d", len(hiddenSizes))))

	inputShape := append([]int{batch}, features...)
	input := G.NewTensor(
		g,
		tensor.Float64,
		4,
		G.WithShape(inputShape...),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	net := &convNet{
		g:          g,
		convLayers: convLayers,
		fcLayers:   fcLayers,
		input:      input,
		features:   append([]int{}, features...),
		numOutputs: outputs,
		batchSize:  batch,
		flatSize:   flatSize,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newConvNet: could not compute forward "+
			"pass: %v", err)
	}

	return net, nil
}

// Graph returns the computational graph of the convNet
func (c *convNet) Graph() *G.ExprGraph {
	return c.g
}

// CloneWithBatch clones a convNet and its weights to a new graph with a
// new input batch size
func (c *convNet) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("cloneWithBatch: batch size must be "+
			"positive, got %v", batchSize)
	}
	graph := G.NewGraph()

	inputShape := append([]int{batchSize}, c.features...)
	input := G.NewTensor(
		graph,
		tensor.Float64,
		4,
		G.WithShape(inputShape...),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	convLayers := make([]Layer, len(c.convLayers))
	for i := range c.convLayers {
		convLayers[i] = c.convLayers[i].CloneTo(graph)
	}
	fcLayers := make([]Layer, len(c.fcLayers))
	for i := range c.fcLayers {
		fcLayers[i] = c.fcLayers[i].CloneTo(graph)
	}

	net := &convNet{
		g:          graph,
		convLayers: convLayers,
		fcLayers:   fcLayers,
		input:      input,
		features:   c.features,
		numOutputs: c.numOutputs,
		batchSize:  batchSize,
		flatSize:   c.flatSize,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone: %v", err)
	}

	return net, nil
}

// BatchSize returns the batch size of inputs to the network
func (c *convNet) BatchSize() int {
	return c.batchSize
}

// Features returns the (channels, height, width) shape of a single
// input sample
func (c *convNet) Features() []int {
	return c.features
}

// Outputs returns the number of outputs from the network
func (c *convNet) Outputs() int {
	return c.numOutputs
}

// FlatSize returns the number of features after flattening the output of
// the convolutional layers
func (c *convNet) FlatSize() int {
	return c.flatSize
}

// SetInput sets the value of the input node before running the forward
// pass. The input must hold BatchSize() samples in row-major order.
func (c *convNet) SetInput(input []float64) error {
	size := c.input.Shape().TotalSize()
	if len(input) != size {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", size, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(c.input.Shape()...),
	)
	return G.Let(c.input, inputTensor)
}

// Learnables returns the learnable nodes in a convNet, ordered by
// layer with each layer's weights before its bias
func (c *convNet) Learnables() G.Nodes {
	if c.learnables == nil {
		layers := append(append([]Layer{}, c.convLayers...), c.fcLayers...)
		learnables := make(G.Nodes, 0, 2*len(layers))
		for _, l := range layers {
			learnables = append(learnables, l.Weights(), l.Bias())
		}
		c.learnables = learnables
	}
	return c.learnables
}

// Model returns the learnables nodes with their gradients
func (c *convNet) Model() []G.ValueGrad {
	if c.model == nil {
		learnables := c.Learnables()
		c.model = make([]G.ValueGrad, len(learnables))
		for i, node := range learnables {
			c.model[i] = node
		}
	}
	return c.model
}

// fwd performs the forward pass of the convNet on the input node
func (c *convNet) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range c.convLayers {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: could not compute forward pass "+
				"of convolutional layer %v: %v", i, err)
		}
	}

	pred, err = G.Reshape(pred, tensor.Shape{c.batchSize, c.flatSize})
	if err != nil {
		return nil, fmt.Errorf("fwd: could not flatten: %v", err)
	}

	for i, l := range c.fcLayers {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: could not compute forward pass "+
				"of fully connected layer %v: %v", i, err)
		}
	}

	c.prediction = pred
	G.Read(c.prediction, &c.predVal)

	return pred, nil
}

// Output returns the output of the convNet, of shape
// (BatchSize(), Outputs())
func (c *convNet) Output() G.Value {
	return c.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the convNet
func (c *convNet) Prediction() *G.Node {
	return c.prediction
}
