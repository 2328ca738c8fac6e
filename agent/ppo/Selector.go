package ppo

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/pongppo/agent"
	"github.com/samuelfneumann/pongppo/utils/floatutils"
)

// ActionSelector selects actions from a Policy, either greedily or by
// sampling from the softmax distribution over the policy's logits
type ActionSelector struct {
	policy *Policy
	rng    *rand.Rand
}

// NewActionSelector returns a new ActionSelector that samples with a
// random source seeded by seed
func NewActionSelector(policy *Policy, seed uint64) *ActionSelector {
	return &ActionSelector{
		policy: policy,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Greedy returns the action with the largest logit. Ties are broken in
// favour of the lowest action index.
func (s *ActionSelector) Greedy(state *tensor.Dense) (int, error) {
	logits, err := s.policy.Logits(state)
	if err != nil {
		return 0, fmt.Errorf("greedy: %v", err)
	}

	_, indices := floatutils.MaxSlice(logits)
	return indices[0], nil
}

// Sample samples an action from the softmax distribution over the
// policy's logits and returns it together with its probability
func (s *ActionSelector) Sample(state *tensor.Dense) (int, float64, error) {
	logits, err := s.policy.Logits(state)
	if err != nil {
		return 0, 0, fmt.Errorf("sample: %v", err)
	}

	dist := distuv.NewCategorical(floatutils.Softmax(logits), s.rng)
	action := dist.Rand()
	return int(action), dist.Prob(action), nil
}

// Select greedily selects an action in evaluation mode and samples an
// action otherwise
func (s *ActionSelector) Select(state *tensor.Dense,
	eval bool) (agent.Decision, error) {
	if eval {
		action, err := s.Greedy(state)
		if err != nil {
			return agent.Decision{}, fmt.Errorf("select: %v", err)
		}
		return agent.Decision{Action: action}, nil
	}

	action, prob, err := s.Sample(state)
	if err != nil {
		return agent.Decision{}, fmt.Errorf("select: %v", err)
	}
	return agent.Decision{Action: action, Prob: prob, Sampled: true}, nil
}
