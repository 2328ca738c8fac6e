package tracker

import (
	"github.com/samuelfneumann/pongppo/agent"
	"github.com/samuelfneumann/pongppo/timestep"
)

// Loss tracks and saves the mean training loss of each policy update.
// Skipped updates have no loss and are not recorded.
type Loss struct {
	losses   []float64
	filename string
}

// NewLoss returns a new Loss Tracker which will save its data at
// filename
func NewLoss(filename string) *Loss {
	return &Loss{filename: filename}
}

// Track does nothing, losses are only seen in policy updates
func (l *Loss) Track(timestep.TimeStep) {}

// TrackUpdate caches the loss of a policy update
func (l *Loss) TrackUpdate(u agent.Update) {
	if !u.Skipped {
		l.losses = append(l.losses, u.Loss)
	}
}

// Data returns the losses of all tracked updates
func (l *Loss) Data() []float64 {
	return append([]float64{}, l.losses...)
}

// Save saves the data tracked by the Loss Tracker to disk.
func (l *Loss) Save() error {
	return save(l.filename, l.losses)
}
