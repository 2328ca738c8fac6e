// Package op provides extended Gorgonia graph operations.
//
// Adapted from aunum/gold on GitHub
package op

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Clip clips the value of a node to [min, max]. Values equal to one of
// the bounds are passed through unchanged.
func Clip(value *G.Node, min, max float64) (retVal *G.Node, err error) {
	if min > max {
		return nil, fmt.Errorf("clip: min %v > max %v", min, max)
	}

	// Construct clipping nodes
	var minNode, maxNode *G.Node
	switch value.Dtype() {
	case G.Float32:
		minNode = G.NewScalar(
			value.Graph(),
			G.Float32,
			G.WithValue(float32(min)),
			G.WithName(fmt.Sprintf("clip_min_%v", value.ID())),
		)
		maxNode = G.NewScalar(
			value.Graph(),
			G.Float32,
			G.WithValue(float32(max)),
			G.WithName(fmt.Sprintf("clip_max_%v", value.ID())),
		)
	case G.Float64:
		minNode = G.NewScalar(
			value.Graph(),
			G.Float64,
			G.WithValue(min),
			G.WithName(fmt.Sprintf("clip_min_%v", value.ID())),
		)
		maxNode = G.NewScalar(
			value.Graph(),
			G.Float64,
			G.WithValue(max),
			G.WithName(fmt.Sprintf("clip_max_%v", value.ID())),
		)
	default:
		return nil, fmt.Errorf("clip: unsupported dtype %v", value.Dtype())
	}

	// Check if its below the min value
	minMask, err := G.Lt(value, minNode, true)
	if err != nil {
		return nil, err
	}
	minVal, err := G.HadamardProd(minNode, minMask)
	if err != nil {
		return nil, err
	}

	// Check if its within [min, max]
	isMaskGte, err := G.Gte(value, minNode, true)
	if err != nil {
		return nil, err
	}
	isMaskLte, err := G.Lte(value, maxNode, true)
	if err != nil {
		return nil, err
	}
	isMask, err := G.HadamardProd(isMaskGte, isMaskLte)
	if err != nil {
		return nil, err
	}
	isVal, err := G.HadamardProd(value, isMask)
	if err != nil {
		return nil, err
	}

	// Check if its above the max value
	maxMask, err := G.Gt(value, maxNode, true)
	if err != nil {
		return nil, err
	}
	maxVal, err := G.HadamardProd(maxNode, maxMask)
	if err != nil {
		return nil, err
	}
	return G.ReduceAdd(G.Nodes{minVal, isVal, maxVal})
}

// Min returns the min value between the nodes. If values are equal
// the first value is returned
func Min(a *G.Node, b *G.Node) (retVal *G.Node, err error) {
	aMask, err := G.Lte(a, b, true)
	if err != nil {
		return nil, err
	}
	aVal, err := G.HadamardProd(a, aMask)
	if err != nil {
		return nil, err
	}

	bMask, err := G.Lt(b, a, true)
	if err != nil {
		return nil, err
	}
	bVal, err := G.HadamardProd(b, bMask)
	if err != nil {
		return nil, err
	}
	return G.Add(aVal, bVal)
}

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// SelectedLogProb returns the log-probability of the actions selected by
// the one-hot rows of actions under the categorical distribution with
// the given logits. Both nodes must be of shape (batch, actions).
func SelectedLogProb(logits, actions *G.Node) (*G.Node, error) {
	if !logits.Shape().Eq(actions.Shape()) {
		return nil, fmt.Errorf("selectedLogProb: logits shape %v does not "+
			"match actions shape %v", logits.Shape(), actions.Shape())
	}

	selected, err := G.HadamardProd(actions, logits)
	if err != nil {
		return nil, fmt.Errorf("selectedLogProb: %v", err)
	}
	selected, err = G.Sum(selected, 1)
	if err != nil {
		return nil, fmt.Errorf("selectedLogProb: %v", err)
	}

	return G.Sub(selected, LogSumExp(logits, 1))
}
