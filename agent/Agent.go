// Package agent defines the interfaces of agents that learn to play
// from raw frames
package agent

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy

	// Name returns the display name of the agent
	Name() string

	// Reset prepares the agent for a new episode
	Reset()
}

// Learner implements a learning algorithm that defines how weights are
// updated from the outcomes of actions taken by the Policy.
type Learner interface {
	// StoreOutcome records that action, selected with probability prob,
	// resulted in reward
	StoreOutcome(action int, prob, reward float64) error

	// EpisodeFinished updates the policy from the episode's recorded
	// outcomes
	EpisodeFinished() (Update, error)

	// ResetTrajectory discards all recorded outcomes
	ResetTrajectory()
}

// Policy represents a policy that an agent can have.
type Policy interface {
	// Act selects an action given a raw observation
	Act(observation *tensor.Dense) (Decision, error)

	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// Serializable is an agent whose weights can be saved and loaded
type Serializable interface {
	// SaveModel writes the weights for the given episode into dir and
	// returns the path written
	SaveModel(dir string, episode int) (string, error)

	// LoadModel loads weights from the agent's configured model path
	LoadModel() (LoadStatus, error)
}

// Decision is the outcome of selecting an action. Prob is the
// probability with which the action was sampled and is only meaningful
// when Sampled is true; greedy selections in evaluation mode have no
// probability.
type Decision struct {
	Action  int
	Prob    float64
	Sampled bool
}

// Update summarizes a policy update performed at the end of an episode
type Update struct {
	// Steps is the number of steps in the trajectory
	Steps int

	// BatchSize is the number of steps in each minibatch
	BatchSize int

	// Iterations is the number of gradient steps taken
	Iterations int

	// Loss is the mean loss over all iterations
	Loss float64

	// Skipped is true if no update was performed because the episode's
	// returns could not be normalized
	Skipped bool
}

// LoadStatus describes the outcome of loading weights
type LoadStatus int

const (
	// Loaded denotes that weights were read from the model path
	Loaded LoadStatus = iota

	// NotFound denotes that no model existed at the model path and the
	// agent kept its freshly initialized weights
	NotFound
)

func (l LoadStatus) String() string {
	switch l {
	case Loaded:
		return "Loaded"
	case NotFound:
		return "NotFound"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(l))
	}
}
