package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ConvLayer describes a square convolutional layer without padding
type ConvLayer struct {
	Filters int
	Kernel  int
	Stride  int
}

// OutputSize returns the spatial size of the layer's output given an
// input of spatial size in
func (c ConvLayer) OutputSize(in int) int {
	if in < c.Kernel || c.Stride <= 0 {
		return 0
	}
	return (in-c.Kernel)/c.Stride + 1
}

// convLayer implements a 2D convolutional layer on inputs of shape
// (batch, channels, height, width)
type convLayer struct {
	filters *G.Node
	bias    *G.Node
	kernel  int
	stride  int
	act     *Activation
}

// newConvLayer adds a convolutional layer taking channels input channels
// to the graph g
func newConvLayer(g *G.ExprGraph, channels int, c ConvLayer,
	act *Activation, init G.InitWFn, name string) *convLayer {
	filters := G.NewTensor(
		g,
		tensor.Float64,
		4,
		G.WithShape(c.Filters, channels, c.Kernel, c.Kernel),
		G.WithName(name+"_W"),
		G.WithInit(init),
	)
	bias := G.NewTensor(
		g,
		tensor.Float64,
		4,
		G.WithShape(1, c.Filters, 1, 1),
		G.WithName(name+"_b"),
		G.WithInit(G.Zeroes()),
	)

	return &convLayer{
		filters: filters,
		bias:    bias,
		kernel:  c.Kernel,
		stride:  c.Stride,
		act:     act,
	}
}

// fwd adds the forward pass of the convLayer to the computational graph
func (c *convLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Conv2d(
		x,
		c.filters,
		tensor.Shape{c.kernel, c.kernel},
		[]int{0, 0},
		[]int{c.stride, c.stride},
		[]int{1, 1},
	)
	if err != nil {
		return nil, fmt.Errorf("fwd: %v", err)
	}

	// Broadcast the bias to all samples and spatial positions
	x, err = G.BroadcastAdd(x, c.bias, nil, []byte{0, 2, 3})
	if err != nil {
		return nil, fmt.Errorf("fwd: %v", err)
	}
	return c.act.fwd(x)
}

// CloneTo clones a convLayer to a new computational graph
func (c *convLayer) CloneTo(g *G.ExprGraph) Layer {
	return &convLayer{
		filters: cloneNode(c.filters, g),
		bias:    cloneNode(c.bias, g),
		kernel:  c.kernel,
		stride:  c.stride,
		act:     c.act,
	}
}

func (c *convLayer) Activation() *Activation {
	return c.act
}

func (c *convLayer) Bias() *G.Node {
	return c.bias
}

func (c *convLayer) Weights() *G.Node {
	return c.filters
}
