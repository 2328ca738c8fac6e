// Package gym provides access to OpenAI Gym's image-based environments,
// such as the Atari Pong games.
//
// This is made possible through the Go bindings for OpenAI Gym,
// found at https://github.com/samuelfneumann/GoGym.
package gym

import (
	"fmt"

	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	env "github.com/samuelfneumann/pongppo/environment"
	ts "github.com/samuelfneumann/pongppo/timestep"
)

// Config describes a Gym environment
type Config struct {
	// Name is a legal environment name from the OpenAI Gym suite
	Name string

	// Shape is the (height, width, channels) shape of observations.
	// Gym returns flattened observations which are reshaped to Shape.
	Shape []int

	// Actions maps agent actions to Gym actions. Agent action i is sent
	// to Gym as Actions[i].
	Actions []int

	Discount float64
	Seed     uint64
}

// GymEnv implements access to an OpenAI Gym environment using GoGym
type GymEnv struct {
	gogym.Environment

	shape       []int
	actions     []int
	ender       env.Ender
	currentStep ts.TimeStep
	discount    float64
}

// New returns a new GymEnv described by the config. The ender may be
// nil, in which case only Gym's own episode cutoffs are used.
func New(c Config, ender env.Ender) (*GymEnv, error) {
	if len(c.Shape) != 3 {
		return nil, fmt.Errorf("new: observation shape must be (height, "+
			"width, channels) but got %v", c.Shape)
	}
	if len(c.Actions) == 0 {
		return nil, fmt.Errorf("new: at least one action is required")
	}

	goGymEnv, err := gogym.Make(c.Name)
	if err != nil {
		return nil, fmt.Errorf("new: could not create "+
			"environment: %v", err)
	}
	goGymEnv.Seed(int(c.Seed))

	return &GymEnv{
		Environment: goGymEnv,
		shape:       c.Shape,
		actions:     c.Actions,
		ender:       ender,
		discount:    c.Discount,
	}, nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(a int) (ts.TimeStep, bool, error) {
	if a < 0 || a >= len(g.actions) {
		return ts.TimeStep{}, true, fmt.Errorf("step: action %v out of "+
			"range [0, %v)", a, len(g.actions))
	}

	action := mat.NewVecDense(1, []float64{float64(g.actions[a])})
	obs, reward, done, err := g.Environment.Step(action)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment: %v", err)
	}

	frame, err := g.frame(obs)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %v", err)
	}

	t := ts.New(ts.Mid, reward, g.discount, frame, g.currentStep.Number+1)
	if done {
		t.StepType = ts.Last
		t.EndType = ts.TerminalStateReached
	} else if g.ender != nil {
		g.ender.End(&t)
	}
	g.currentStep = t

	return t, t.Last(), nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment: %v", err)
	}

	frame, err := g.frame(obs)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	t := ts.New(ts.First, 0, g.discount, frame, 0)
	g.currentStep = t

	return t, nil
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	spec, _ := env.NewSpec(g.shape, env.Observation, 0, 255, env.Continuous)
	return spec
}

// ActionSpec returns the action specification of the environment, which
// ranges over the agent's actions rather than Gym's
func (g *GymEnv) ActionSpec() env.Spec {
	spec, _ := env.NewSpec([]int{1}, env.Action, 0,
		float64(len(g.actions)-1), env.Discrete)
	return spec
}

// Close closes the environment
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}

// frame reshapes a flat Gym observation into a frame
func (g *GymEnv) frame(obs *mat.VecDense) (*tensor.Dense, error) {
	size := g.shape[0] * g.shape[1] * g.shape[2]
	if obs.Len() != size {
		return nil, fmt.Errorf("frame: observation has %v values but "+
			"shape %v needs %v", obs.Len(), g.shape, size)
	}

	backing := make([]float64, size)
	copy(backing, obs.RawVector().Data)
	return tensor.New(tensor.WithShape(g.shape...),
		tensor.WithBacking(backing)), nil
}

// Close shuts down the Python interpreter used by GoGym. It should be
// called once all Gym environments are closed.
func Close() {
	gogym.Close()
}
