package environment

import (
	"testing"

	"github.com/samuelfneumann/pongppo/timestep"
)

func TestStepLimit(t *testing.T) {
	limit := NewStepLimit(3)

	for i := 0; i < 3; i++ {
		step := timestep.New(timestep.Mid, 0, 1, nil, i)
		if limit.End(&step) {
			t.Errorf("step %v: ended too early", i)
		}
	}

	step := timestep.New(timestep.Mid, 0, 1, nil, 3)
	if !limit.End(&step) {
		t.Fatal("step limit did not end episode")
	}
	if !step.Last() || step.EndType != timestep.Timeout {
		t.Errorf("expected last timestep ended by timeout, got %v / %v",
			step.StepType, step.EndType)
	}
}

func TestStepLimitDisabled(t *testing.T) {
	limit := NewStepLimit(0)
	step := timestep.New(timestep.Mid, 0, 1, nil, 1_000_000)
	if limit.End(&step) {
		t.Error("zero step limit should never end an episode")
	}
}

func TestNewSpec(t *testing.T) {
	spec, err := NewSpec([]int{1}, Action, 0, 2, Discrete)
	if err != nil {
		t.Fatal(err)
	}
	if spec.NumActions() != 3 {
		t.Errorf("expected 3 actions, got %v", spec.NumActions())
	}

	if _, err := NewSpec([]int{200, 0, 3}, Observation, 0, 255,
		Continuous); err == nil {
		t.Error("expected error for zero dimension")
	}
	if _, err := NewSpec([]int{1}, Action, 2, 0, Discrete); err == nil {
		t.Error("expected error for inverted bounds")
	}
}
