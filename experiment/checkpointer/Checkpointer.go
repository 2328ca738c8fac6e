// Package checkpointer implements functionality for saving agents
// during an experiment
package checkpointer

// Checkpointer checkpoints/saves agents based on the number of
// finished episodes
type Checkpointer interface {
	Checkpoint(episode int) error
}
