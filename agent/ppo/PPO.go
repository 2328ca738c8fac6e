// Package ppo implements a Proximal Policy Optimization agent that
// learns to play from raw frames.
//
// The agent stacks preprocessed frames into states and selects actions
// with a convolutional policy network. At the end of each episode, the
// policy is trained on the episode's trajectory for a number of
// minibatch updates of the clipped surrogate objective, with advantages
// given by standardized discounted returns.
package ppo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/pongppo/agent"
	"github.com/samuelfneumann/pongppo/buffer/trajectory"
	"github.com/samuelfneumann/pongppo/network"
	"github.com/samuelfneumann/pongppo/preprocess"
	"github.com/samuelfneumann/pongppo/utils/intutils"
)

// Name is the display name of the agent
const Name = "PPO-CNN"

// PPO implements the Proximal Policy Optimization agent
type PPO struct {
	policy       *Policy
	selector     *ActionSelector
	preprocessor *preprocess.Preprocessor
	trajectory   *trajectory.Store
	solver       G.Solver
	rng          *rand.Rand

	numActions int
	gamma      float64
	epsilon    float64
	epochs     int
	batchCap   int
	minStd     float64
	modelPath  string
	playerID   int
	eval       bool

	// lastState is the state of the most recent action, waiting for
	// its outcome to be stored
	lastState *tensor.Dense

	logger zerolog.Logger
}

// New creates and returns a new PPO agent acting on frames converted by
// the preprocessor. Weights are freshly initialized; use LoadModel to
// restore saved weights.
func New(c Config, p *preprocess.Preprocessor) (*PPO, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if p == nil {
		return nil, fmt.Errorf("new: nil preprocessor")
	}

	h, w := p.OutputShape()
	policy, err := NewPolicy([]int{p.Frames(), h, w}, c.ActionSpace,
		c.Convs, c.HiddenSizes, c.InitWFn.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	logger := zerolog.Nop()
	if c.Logger != nil {
		logger = *c.Logger
	}

	return &PPO{
		policy: policy,

		// Separate streams for action sampling and minibatch sampling
		selector:     NewActionSelector(policy, c.Seed),
		rng:          rand.New(rand.NewSource(c.Seed + 1)),
		preprocessor: p,
		trajectory:   trajectory.New(),
		solver:       c.Solver,
		numActions:   c.ActionSpace,
		gamma:        c.Gamma,
		epsilon:      c.Epsilon,
		epochs:       c.Epochs,
		batchCap:     c.BatchCap,
		minStd:       c.MinStd,
		modelPath:    c.ModelPath,
		playerID:     c.PlayerID,
		eval:         c.Evaluation,
		logger:       logger.With().Str("agent", Name).Logger(),
	}, nil
}

// Name returns the display name of the agent
func (p *PPO) Name() string {
	return Name
}

// PlayerID returns the player the agent controls
func (p *PPO) PlayerID() int {
	return p.playerID
}

// Policy returns the agent's policy
func (p *PPO) Policy() *Policy {
	return p.policy
}

// Eval sets the agent into evaluation mode
func (p *PPO) Eval() { p.eval = true }

// Train sets the agent into training mode
func (p *PPO) Train() { p.eval = false }

// IsEval indicates whether the agent is in evaluation mode
func (p *PPO) IsEval() bool { return p.eval }

// Reset prepares the agent for a new episode by forgetting the frames
// carried from the previous episode. The trajectory is not changed.
func (p *PPO) Reset() {
	p.preprocessor.Reset()
	p.lastState = nil
}

// ResetTrajectory discards all recorded outcomes
func (p *PPO) ResetTrajectory() {
	p.trajectory.Clear()
}

// Act preprocesses an observation and selects an action in the
// resulting state. In evaluation mode the greedy action is returned;
// otherwise an action is sampled together with its probability.
func (p *PPO) Act(observation *tensor.Dense) (agent.Decision, error) {
	state, err := p.preprocessor.Preprocess(observation)
	if err != nil {
		return agent.Decision{}, fmt.Errorf("act: %v", err)
	}
	p.lastState = state

	decision, err := p.selector.Select(state, p.eval)
	if err != nil {
		return agent.Decision{}, fmt.Errorf("act: %v", err)
	}
	return decision, nil
}

// StoreOutcome records the outcome of the most recent action
func (p *PPO) StoreOutcome(action int, prob, reward float64) error {
	if p.lastState == nil {
		return fmt.Errorf("storeOutcome: no action taken since the last " +
			"stored outcome")
	}
	if action < 0 || action >= p.numActions {
		return fmt.Errorf("storeOutcome: action %v out of range [0, %v)",
			action, p.numActions)
	}

	if err := p.trajectory.Append(p.lastState, action, prob,
		reward); err != nil {
		return fmt.Errorf("storeOutcome: %w", err)
	}
	p.lastState = nil
	return nil
}

// EpisodeFinished trains the policy on the recorded trajectory. The
// discounted returns of the episode are standardized and used as
// advantages for Epochs minibatch updates of the clipped surrogate loss.
// Each minibatch holds min(steps, BatchCap) distinct steps.
//
// An empty trajectory returns an error satisfying trajectory.IsEmpty.
// If the returns cannot be standardized, no update is performed and the
// returned Update is marked as skipped. The trajectory is not cleared.
func (p *PPO) EpisodeFinished() (agent.Update, error) {
	if err := p.trajectory.Validate(); err != nil {
		return agent.Update{}, fmt.Errorf("episodeFinished: %w", err)
	}
	steps := p.trajectory.Len()

	returns := trajectory.DiscountedReturns(p.trajectory.Rewards(), p.gamma)
	advantages, ok := trajectory.Normalize(returns, p.minStd)
	if !ok {
		p.logger.Warn().
			Int("steps", steps).
			Msg("returns have no spread, skipping update")
		return agent.Update{Steps: steps, Skipped: true}, nil
	}

	batchSize := intutils.Min(steps, p.batchCap)
	l, err := newLossGraph(p.policy.net, batchSize, p.numActions, p.epsilon,
		true)
	if err != nil {
		return agent.Update{}, fmt.Errorf("episodeFinished: %v", err)
	}
	defer l.close()

	var totalLoss float64
	for i := 0; i < p.epochs; i++ {
		indices, err := p.trajectory.Sample(p.rng, batchSize)
		if err != nil {
			return agent.Update{}, fmt.Errorf("episodeFinished: %w", err)
		}
		batch, err := p.trajectory.Batch(indices, advantages, p.numActions)
		if err != nil {
			return agent.Update{}, fmt.Errorf("episodeFinished: %w", err)
		}

		loss, err := l.step(batch, p.solver)
		if err != nil {
			return agent.Update{}, fmt.Errorf("episodeFinished: %v", err)
		}
		totalLoss += loss
	}

	// Copy the trained weights back into the acting network
	if err := network.Set(p.policy.net, l.net); err != nil {
		return agent.Update{}, fmt.Errorf("episodeFinished: %v", err)
	}

	update := agent.Update{
		Steps:      steps,
		BatchSize:  batchSize,
		Iterations: p.epochs,
		Loss:       totalLoss / float64(p.epochs),
	}
	p.logger.Debug().
		Int("steps", steps).
		Int("batch", batchSize).
		Float64("loss", update.Loss).
		Msg("policy updated")

	return update, nil
}

// SaveModel writes the policy's weights to dir/model_<episode>.mdl,
// creating dir if needed, and returns the path written
func (p *PPO) SaveModel(dir string, episode int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("saveModel: could not create directory: %v",
			err)
	}

	path := filepath.Join(dir, fmt.Sprintf("model_%d.mdl", episode))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("saveModel: could not create file: %v", err)
	}

	if err := p.policy.Save(file); err != nil {
		file.Close()
		return "", fmt.Errorf("saveModel: %v", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("saveModel: %v", err)
	}

	p.logger.Info().Str("path", path).Int("episode", episode).
		Msg("model saved")
	return path, nil
}

// LoadModel loads the policy's weights from the configured model path.
// A missing file is not an error: the policy keeps its current weights
// and NotFound is returned.
func (p *PPO) LoadModel() (agent.LoadStatus, error) {
	return p.LoadModelFrom(p.modelPath)
}

// LoadModelFrom loads the policy's weights from path. A missing file is
// not an error: the policy keeps its current weights and NotFound is
// returned.
func (p *PPO) LoadModelFrom(path string) (agent.LoadStatus, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		p.logger.Warn().Str("path", path).
			Msg("model not found, keeping initial weights")
		return agent.NotFound, nil
	} else if err != nil {
		return agent.NotFound, fmt.Errorf("loadModel: %v", err)
	}
	defer file.Close()

	if err := p.policy.Load(file); err != nil {
		return agent.NotFound, fmt.Errorf("loadModel: %v", err)
	}

	p.logger.Info().Str("path", path).Msg("model loaded")
	return agent.Loaded, nil
}

// Close releases the resources held by the agent
func (p *PPO) Close() error {
	return p.policy.Close()
}
