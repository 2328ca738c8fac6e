// Package experiment implements functionality for running an experiment
package experiment

import "github.com/samuelfneumann/pongppo/agent"

// Interface Experiment outlines structs that can run experiments.
// Experiments send each environment TimeStep to their Trackers, which
// cache the data in RAM to be later saved to disk. The Save() function
// will then take all cached data and save it to disk. This is usually
// performed after an experiment has been run. The Run() method will
// run all episodes until the episode limit is reached. The RunEpisode()
// function will run a single episode.
type Experiment interface {
	Run() error
	RunEpisode() (Episode, error)

	// Save all tracked data to disk
	Save() error
}

// Episode summarizes a single finished episode
type Episode struct {
	// Number is the 1-based index of the episode in the experiment
	Number int

	Steps  int
	Return float64

	// Update is the policy update made at the end of the episode. It is
	// the zero Update when the agent is evaluated.
	Update agent.Update
}
