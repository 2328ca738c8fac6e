package ppo

import (
	"fmt"
	"testing"

	G "gorgonia.org/gorgonia"
)

// failingVM fails every run and counts how often it is reset
type failingVM struct {
	G.VM
	resets int
}

func (f *failingVM) RunAll() error {
	return fmt.Errorf("run failed")
}

func (f *failingVM) Reset() {
	f.resets++
}

func TestLogitsResetsAfterFailedRun(t *testing.T) {
	a := newTestAgent(t, newTestConfig(t))
	policy := a.Policy()

	state, err := a.preprocessor.Preprocess(observation(0))
	if err != nil {
		t.Fatal(err)
	}

	vm := policy.vm
	failing := &failingVM{VM: vm}
	policy.vm = failing
	_, err = policy.Logits(state)
	policy.vm = vm

	if err == nil {
		t.Error("expected an error from a failed run")
	}
	if failing.resets != 1 {
		t.Errorf("expected the machine to be reset once, got %v",
			failing.resets)
	}

	logits, err := policy.Logits(state)
	if err != nil {
		t.Fatal(err)
	}
	if len(logits) != DefaultConfig().ActionSpace {
		t.Errorf("expected %v logits, got %v", DefaultConfig().ActionSpace,
			len(logits))
	}
}
