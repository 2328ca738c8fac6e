package environment

import (
	"fmt"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action or an observation
type SpecType int

const (
	Action SpecType = iota
	Observation
)

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action or observation in an environment
type Spec struct {
	Shape      []int
	Type       SpecType
	LowerBound float64
	UpperBound float64
	Cardinality
}

// NewSpec constructs a new environment specification
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing. All values described by the Spec lie in
// [lowerBound, upperBound].
func NewSpec(shape []int, t SpecType, lowerBound, upperBound float64,
	cardinality Cardinality) (Spec, error) {
	if len(shape) == 0 {
		return Spec{}, fmt.Errorf("newSpec: shape must have at least one " +
			"dimension")
	}
	for _, dim := range shape {
		if dim <= 0 {
			return Spec{}, fmt.Errorf("newSpec: dimensions must be positive "+
				"but got shape %v", shape)
		}
	}
	if lowerBound > upperBound {
		return Spec{}, fmt.Errorf("newSpec: lower bound %v > upper bound %v",
			lowerBound, upperBound)
	}

	s := make([]int, len(shape))
	copy(s, shape)
	return Spec{s, t, lowerBound, upperBound, cardinality}, nil
}

// NumActions returns the number of discrete actions described by an
// action specification
func (s Spec) NumActions() int {
	if s.Type != Action || s.Cardinality != Discrete {
		return 0
	}
	return int(s.UpperBound-s.LowerBound) + 1
}
