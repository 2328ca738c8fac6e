package experiment

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/samuelfneumann/pongppo/agent"
	env "github.com/samuelfneumann/pongppo/environment"
	"github.com/samuelfneumann/pongppo/experiment/checkpointer"
	"github.com/samuelfneumann/pongppo/experiment/tracker"
	ts "github.com/samuelfneumann/pongppo/timestep"
	"github.com/samuelfneumann/pongppo/utils/progressbar"
)

// Online is an Experiment that runs an agent online. When the agent is
// in training mode, its policy is updated at the end of each episode
// from the outcomes recorded during the episode. No offline evaluation
// is performed.
type Online struct {
	env.Environment
	agent.Agent
	episodes       int
	currentEpisode int
	trackers       []tracker.Tracker
	checkpointers  []checkpointer.Checkpointer

	progress *progressbar.ManualProgressBar
	logger   zerolog.Logger
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The episodes parameter determines how
// many episodes the experiment is run for, t determines what data is
// saved, and c determines when the agent is saved.
func NewOnline(e env.Environment, a agent.Agent, episodes int,
	t []tracker.Tracker, c []checkpointer.Checkpointer,
	logger zerolog.Logger) (*Online, error) {
	if episodes < 1 {
		return nil, fmt.Errorf("newOnline: at least one episode is "+
			"required, got %v", episodes)
	}

	return &Online{
		Environment:   e,
		Agent:         a,
		episodes:      episodes,
		trackers:      t,
		checkpointers: c,
		logger:        logger.With().Str("component", "experiment").Logger(),
	}, nil
}

// ShowProgress prints a progress bar of finished episodes to out while
// the experiment runs
func (o *Online) ShowProgress(out io.Writer) {
	o.progress = progressbar.NewManualProgressBar(out, 40, o.episodes)
}

// RunEpisode runs a single episode of the experiment. In training mode,
// each action's outcome is stored with the agent and the agent's policy
// is updated once the episode ends.
func (o *Online) RunEpisode() (Episode, error) {
	step, err := o.Environment.Reset()
	if err != nil {
		return Episode{}, fmt.Errorf("runEpisode: %v", err)
	}
	o.Agent.Reset()
	o.track(step)

	var episodeReturn float64
	for !step.Last() {
		decision, err := o.Agent.Act(step.Observation)
		if err != nil {
			return Episode{}, fmt.Errorf("runEpisode: %v", err)
		}

		step, _, err = o.Environment.Step(decision.Action)
		if err != nil {
			return Episode{}, fmt.Errorf("runEpisode: %v", err)
		}
		o.track(step)
		episodeReturn += step.Reward

		if !o.Agent.IsEval() {
			err := o.Agent.StoreOutcome(decision.Action, decision.Prob,
				step.Reward)
			if err != nil {
				return Episode{}, fmt.Errorf("runEpisode: %v", err)
			}
		}
	}
	o.currentEpisode++

	episode := Episode{
		Number: o.currentEpisode,
		Steps:  step.Number,
		Return: episodeReturn,
	}

	if !o.Agent.IsEval() {
		update, err := o.Agent.EpisodeFinished()
		if err != nil {
			return Episode{}, fmt.Errorf("runEpisode: %v", err)
		}
		o.Agent.ResetTrajectory()
		episode.Update = update
		o.trackUpdate(update)
	}

	if err := o.checkpoint(o.currentEpisode); err != nil {
		return Episode{}, fmt.Errorf("runEpisode: %v", err)
	}

	o.logger.Info().
		Int("episode", episode.Number).
		Int("steps", episode.Steps).
		Float64("return", episode.Return).
		Float64("loss", episode.Update.Loss).
		Bool("skipped", episode.Update.Skipped).
		Str("end", step.EndType.String()).
		Msg("episode finished")

	return episode, nil
}

// Run runs the entire experiment for all episodes
func (o *Online) Run() error {
	for o.currentEpisode < o.episodes {
		episode, err := o.RunEpisode()
		if err != nil {
			return fmt.Errorf("run: episode %v: %v", o.currentEpisode+1, err)
		}

		if o.progress != nil {
			o.progress.Increment()
			o.progress.SetStatus(fmt.Sprintf("return: %v", episode.Return))
			o.progress.Display()
		}
	}

	if o.progress != nil {
		o.progress.Done()
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
}

// trackUpdate sends a policy update to each tracker that tracks updates
func (o *Online) trackUpdate(u agent.Update) {
	for _, t := range o.trackers {
		if ut, ok := t.(tracker.UpdateTracker); ok {
			ut.TrackUpdate(u)
		}
	}
}

// checkpoint saves the agent using each checkpointer
func (o *Online) checkpoint(episode int) error {
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(episode); err != nil {
			return err
		}
	}
	return nil
}
