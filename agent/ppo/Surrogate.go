package ppo

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/pongppo/utils/op"
)

// ClippedSurrogate adds the clipped surrogate loss
//
//	mean(-min(r * A, clip(r, 1-ε, 1+ε) * A))
//
// to the graph of ratio, where r is the probability ratio between the
// current and behaviour policies and A is the advantage of each sample.
func ClippedSurrogate(ratio, advantages *G.Node, epsilon float64) (*G.Node,
	error) {
	if !ratio.Shape().Eq(advantages.Shape()) {
		return nil, fmt.Errorf("clippedSurrogate: ratio shape %v does not "+
			"match advantages shape %v", ratio.Shape(), advantages.Shape())
	}

	unclipped, err := G.HadamardProd(ratio, advantages)
	if err != nil {
		return nil, fmt.Errorf("clippedSurrogate: %v", err)
	}

	clipped, err := op.Clip(ratio, 1-epsilon, 1+epsilon)
	if err != nil {
		return nil, fmt.Errorf("clippedSurrogate: %v", err)
	}
	clipped, err = G.HadamardProd(clipped, advantages)
	if err != nil {
		return nil, fmt.Errorf("clippedSurrogate: %v", err)
	}

	surrogate, err := op.Min(unclipped, clipped)
	if err != nil {
		return nil, fmt.Errorf("clippedSurrogate: %v", err)
	}
	surrogate, err = G.Neg(surrogate)
	if err != nil {
		return nil, fmt.Errorf("clippedSurrogate: %v", err)
	}

	return G.Mean(surrogate)
}
