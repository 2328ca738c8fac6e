// Package environment outlines the interfaces and structs needed to
// implement concrete environments that emit raw image frames
package environment

import (
	"github.com/samuelfneumann/pongppo/timestep"
)

// Ender determines when an episode should end
type Ender interface {
	// End checks whether the argument timestep is the last in the
	// episode. If so, it should mark the timestep as the last.
	End(*timestep.TimeStep) bool
}

// Environment implements a simulated environment with a discrete action
// space. Observations are raw frames of shape (height, width, channels).
type Environment interface {
	// Reset starts a new episode and returns its first timestep
	Reset() (timestep.TimeStep, error)

	// Step takes one action in the environment, returning the next
	// timestep and whether the episode has ended
	Step(action int) (timestep.TimeStep, bool, error)

	ObservationSpec() Spec
	ActionSpec() Spec

	// Close releases any resources held by the environment
	Close() error
}
