// Package solver wraps Gorgonia Solvers so that they can be described
// by plain configuration values and created by name.
package solver

import (
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

// Solver wraps a Gorgonia Solver together with the configuration that
// created it
type Solver struct {
	G.Solver
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// New returns a solver of the named type with default hyperparameters.
// Names are matched case-insensitively. Gradients are not rescaled by a
// batch size, so losses should already be averaged over their batch. A
// non-positive clip disables gradient clipping.
func New(name string, stepSize, clip float64) (*Solver, error) {
	if stepSize <= 0 {
		return nil, fmt.Errorf("new: step size must be positive, got %v",
			stepSize)
	}

	switch Type(name) {
	case Adam, Type(strings.ToLower(string(Adam))):
		return NewAdam(stepSize, 1e-8, 0.9, 0.999, 1, clip)
	case Vanilla, Type(strings.ToLower(string(Vanilla))):
		return NewVanilla(stepSize, 1, clip)
	case RMSProp, Type(strings.ToLower(string(RMSProp))):
		return NewRMSProp(stepSize, 1e-8, 0.999, 1, clip)
	default:
		return nil, fmt.Errorf("new: unknown solver type %q", name)
	}
}

// String implements the fmt.Stringer interface
func (s *Solver) String() string {
	return fmt.Sprintf("{%v Solver: %+v}", s.Type, s.Config)
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}
