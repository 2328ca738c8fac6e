package checkpointer

import (
	"fmt"

	"github.com/samuelfneumann/pongppo/agent"
)

// nEpisode implements checkpointing every N episodes
type nEpisode struct {
	interval int
	object   agent.Serializable // Object to save
	dir      string
}

// NewNEpisode returns a checkpointer that saves the weights of object
// into dir every n episodes. Episode 0 is never checkpointed.
func NewNEpisode(n int, object agent.Serializable,
	dir string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("newNEpisode: interval must be positive, "+
			"got %v", n)
	}
	return &nEpisode{
		interval: n,
		object:   object,
		dir:      dir,
	}, nil
}

// Checkpoint saves the Checkpointer's tracked object by calling its
// SaveModel() method if episode is a multiple of the interval
func (n *nEpisode) Checkpoint(episode int) error {
	if episode <= 0 || episode%n.interval != 0 {
		return nil
	}

	if _, err := n.object.SaveModel(n.dir, episode); err != nil {
		return fmt.Errorf("checkpoint: %v", err)
	}
	return nil
}
