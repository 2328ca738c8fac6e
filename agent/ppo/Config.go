package ppo

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/samuelfneumann/pongppo/initwfn"
	"github.com/samuelfneumann/pongppo/network"
	"github.com/samuelfneumann/pongppo/solver"
)

// Config implements a configuration of the PPO agent
type Config struct {
	// ActionSpace is the number of discrete actions
	ActionSpace int

	// Gamma is the discount factor used to compute returns
	Gamma float64

	// Epsilon is the clipping parameter of the surrogate objective
	Epsilon float64

	// Epochs is the number of minibatch updates per episode
	Epochs int

	// BatchCap is the maximum number of steps in a minibatch
	BatchCap int

	// MinStd is the smallest standard deviation of returns that can
	// be normalized. Episodes with returns of smaller spread are not
	// learned from.
	MinStd float64

	// Convs and HiddenSizes describe the policy network architecture
	Convs       []network.ConvLayer
	HiddenSizes []int

	Solver  *solver.Solver
	InitWFn *initwfn.InitWFn

	// ModelPath is the file that LoadModel reads weights from
	ModelPath string

	// Evaluation selects greedy actions and disables learning
	Evaluation bool

	PlayerID int
	Device   string
	Seed     uint64

	// Logger defaults to a disabled logger if nil
	Logger *zerolog.Logger
}

// DefaultConfig returns the default agent configuration: a policy of two
// ReLU convolutional layers and one hidden layer of 128 units trained
// with Adam at a step size of 1e-4.
func DefaultConfig() Config {
	adam, err := solver.NewDefaultAdam(1e-4, 1)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}
	init, err := initwfn.New(string(initwfn.GlorotU), 1.0)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}

	return Config{
		ActionSpace: 3,
		Gamma:       0.99,
		Epsilon:     0.1,
		Epochs:      5,
		BatchCap:    20000,
		MinStd:      1e-8,
		Convs: []network.ConvLayer{
			{Filters: 16, Kernel: 8, Stride: 4},
			{Filters: 32, Kernel: 4, Stride: 2},
		},
		HiddenSizes: []int{128},
		Solver:      adam,
		InitWFn:     init,
		ModelPath:   "model.mdl",
		Evaluation:  false,
		PlayerID:    1,
		Device:      "cpu",
	}
}

// Validate checks a Config for illegal values
func (c Config) Validate() error {
	if c.ActionSpace < 1 {
		return fmt.Errorf("validate: action space must have at least one "+
			"action, got %v", c.ActionSpace)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1], got %v",
			c.Gamma)
	}
	if c.Epsilon <= 0 || c.Epsilon >= 1 {
		return fmt.Errorf("validate: epsilon must be in (0, 1), got %v",
			c.Epsilon)
	}
	if c.Epochs < 1 {
		return fmt.Errorf("validate: at least one epoch is required, got "+
			"%v", c.Epochs)
	}
	if c.BatchCap < 1 {
		return fmt.Errorf("validate: batch cap must be positive, got %v",
			c.BatchCap)
	}
	if c.MinStd < 0 {
		return fmt.Errorf("validate: minimum standard deviation must be "+
			"non-negative, got %v", c.MinStd)
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: no solver specified")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer specified")
	}
	if c.Device != "" && c.Device != "cpu" {
		return fmt.Errorf("validate: unsupported device %q, only cpu is "+
			"available", c.Device)
	}
	return nil
}
