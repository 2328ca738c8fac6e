// Package trajectory implements storage of the transitions of a single
// episode, the discounted returns computed from them, and the sampling
// of training minibatches.
package trajectory

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gorgonia.org/tensor"
)

// Store holds four parallel sequences for the current episode: the
// stacked state the agent acted in, the action it took, the probability
// with which it took that action, and the reward it received. Index i of
// each sequence describes the same step.
type Store struct {
	states  []*tensor.Dense
	actions []int
	probs   []float64
	rewards []float64
}

// New returns a new, empty Store
func New() *Store {
	return &Store{}
}

// Append adds a single step to the trajectory
func (s *Store) Append(state *tensor.Dense, action int, prob,
	reward float64) error {
	if state == nil {
		return &Error{Op: "append", Err: fmt.Errorf("nil state")}
	}
	if len(s.states) > 0 && !state.Shape().Eq(s.states[0].Shape()) {
		return &Error{Op: "append", Err: fmt.Errorf("state shape %v does "+
			"not match trajectory state shape %v", state.Shape(),
			s.states[0].Shape())}
	}
	if !(prob > 0 && prob <= 1) {
		return &Error{Op: "append", Err: fmt.Errorf("action probability "+
			"must be in (0, 1], got %v", prob)}
	}

	s.states = append(s.states, state)
	s.actions = append(s.actions, action)
	s.probs = append(s.probs, prob)
	s.rewards = append(s.rewards, reward)
	return nil
}

// Len returns the number of steps in the trajectory
func (s *Store) Len() int {
	return len(s.states)
}

// Clear removes all steps from the trajectory
func (s *Store) Clear() {
	s.states = nil
	s.actions = nil
	s.probs = nil
	s.rewards = nil
}

// Rewards returns a copy of the rewards in the trajectory
func (s *Store) Rewards() []float64 {
	return append([]float64{}, s.rewards...)
}

// Validate returns an error if the trajectory is empty or if its
// parallel sequences have different lengths
func (s *Store) Validate() error {
	return s.validate("validate")
}

// validate checks that the trajectory is non-empty and that its parallel
// sequences have equal lengths
func (s *Store) validate(op string) error {
	n := len(s.states)
	if len(s.actions) != n || len(s.probs) != n || len(s.rewards) != n {
		return &Error{Op: op, Err: fmt.Errorf("%w: states(%v) actions(%v) "+
			"probs(%v) rewards(%v)", errLengthMismatch, n, len(s.actions),
			len(s.probs), len(s.rewards))}
	}
	if n == 0 {
		return &Error{Op: op, Err: errEmpty}
	}
	return nil
}

// Sample returns size distinct step indices chosen uniformly at random.
// If size exceeds the trajectory length, every index is returned in a
// random order.
func (s *Store) Sample(rng *rand.Rand, size int) ([]int, error) {
	if err := s.validate("sample"); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, &Error{Op: "sample", Err: fmt.Errorf("sample size "+
			"must be positive, got %v", size)}
	}

	indices := rng.Perm(s.Len())
	if size < len(indices) {
		indices = indices[:size]
	}
	return indices, nil
}

// Batch gathers the steps at the given indices into a training batch.
// The advantages argument holds one advantage per step of the trajectory
// and actions are one-hot encoded over numActions actions.
func (s *Store) Batch(indices []int, advantages []float64,
	numActions int) (Batch, error) {
	if err := s.validate("batch"); err != nil {
		return Batch{}, err
	}
	if len(advantages) != s.Len() {
		return Batch{}, &Error{Op: "batch", Err: fmt.Errorf("%w: "+
			"trajectory(%v) advantages(%v)", errLengthMismatch, s.Len(),
			len(advantages))}
	}
	if len(indices) == 0 {
		return Batch{}, &Error{Op: "batch", Err: errEmpty}
	}

	stateShape := s.states[0].Shape()
	stateSize := stateShape.TotalSize()
	b := Batch{
		Size:       len(indices),
		StateShape: append([]int{}, stateShape[1:]...),
		States:     make([]float64, 0, len(indices)*stateSize),
		Actions:    make([]int, len(indices)),
		Probs:      make([]float64, len(indices)),
		Advantages: make([]float64, len(indices)),
	}

	for i, idx := range indices {
		if idx < 0 || idx >= s.Len() {
			return Batch{}, &Error{Op: "batch", Err: fmt.Errorf("index %v "+
				"out of range [0, %v)", idx, s.Len())}
		}
		b.States = append(b.States, s.states[idx].Data().([]float64)...)
		b.Actions[i] = s.actions[idx]
		b.Probs[i] = s.probs[idx]
		b.Advantages[i] = advantages[idx]
	}

	oneHot, err := OneHot(b.Actions, numActions)
	if err != nil {
		return Batch{}, &Error{Op: "batch", Err: err}
	}
	b.OneHot = oneHot

	return b, nil
}

// Batch is a minibatch of steps used to compute the clipped surrogate
// loss
type Batch struct {
	Size int

	// StateShape is the shape of a single state, without the leading
	// batch dimension
	StateShape []int

	// States holds Size states, flattened in row-major order
	States []float64

	Actions []int

	// OneHot holds the (Size, numActions) one-hot encoding of Actions
	OneHot []float64

	Probs      []float64
	Advantages []float64
}

// OneHot returns the row-major (len(actions), numActions) matrix whose
// row i has a one in column actions[i] and zeroes elsewhere
func OneHot(actions []int, numActions int) ([]float64, error) {
	if numActions <= 0 {
		return nil, fmt.Errorf("oneHot: number of actions must be "+
			"positive, got %v", numActions)
	}

	encoded := make([]float64, len(actions)*numActions)
	for i, a := range actions {
		if a < 0 || a >= numActions {
			return nil, fmt.Errorf("oneHot: action %v out of range [0, %v)",
				a, numActions)
		}
		encoded[i*numActions+a] = 1
	}
	return encoded, nil
}
