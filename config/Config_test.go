package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/samuelfneumann/pongppo/environment"
	"github.com/samuelfneumann/pongppo/environment/pong"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	pc, err := c.PPO(nil)
	if err != nil {
		t.Fatal(err)
	}
	if pc.Gamma != 0.99 || pc.Epsilon != 0.1 || pc.Epochs != 5 ||
		pc.BatchCap != 20000 || pc.ActionSpace != 3 {
		t.Errorf("unexpected agent defaults %+v", pc)
	}

	pre, err := c.PreprocessConfig()
	if err != nil {
		t.Fatal(err)
	}
	if pre.Rows.Len() != 100 || pre.Cols.Len() != 92 || pre.Frames != 2 {
		t.Errorf("unexpected preprocessing defaults %+v", pre)
	}
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	d := Default()
	if c.Agent.Gamma != d.Agent.Gamma || c.Env.Name != Pong ||
		c.Experiment.SaveEvery != 100 || len(c.Agent.Convs) != 2 {
		t.Errorf("expected defaults, got %+v", c)
	}
	if c.Agent.Convs[1] != (ConvNet{Filters: 32, Kernel: 4, Stride: 2}) {
		t.Errorf("unexpected second convolution %+v", c.Agent.Convs[1])
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`agent:
  gamma: 0.95
  hidden: [64, 32]
  convs:
    - {filters: 8, kernel: 8, stride: 4}
env:
  step_limit: 500
experiment:
  episodes: 10
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if c.Agent.Gamma != 0.95 {
		t.Errorf("expected gamma 0.95, got %v", c.Agent.Gamma)
	}
	if len(c.Agent.Hidden) != 2 || c.Agent.Hidden[0] != 64 {
		t.Errorf("expected hidden sizes [64 32], got %v", c.Agent.Hidden)
	}
	if len(c.Agent.Convs) != 1 || c.Agent.Convs[0].Filters != 8 {
		t.Errorf("expected one convolution of 8 filters, got %v",
			c.Agent.Convs)
	}
	if c.Env.StepLimit != 500 || c.Experiment.Episodes != 10 {
		t.Errorf("expected step limit 500 and 10 episodes, got %v and %v",
			c.Env.StepLimit, c.Experiment.Episodes)
	}

	// Unset values keep their defaults
	if c.Agent.Clip != 0.1 || c.Env.PointsToWin != 21 {
		t.Errorf("expected default clip and points, got %v and %v",
			c.Agent.Clip, c.Env.PointsToWin)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PONGPPO_AGENT_GAMMA", "0.5")
	t.Setenv("PONGPPO_ENV_POINTS_TO_WIN", "3")

	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Agent.Gamma != 0.5 || c.Env.PointsToWin != 3 {
		t.Errorf("expected gamma 0.5 and 3 points, got %v and %v",
			c.Agent.Gamma, c.Env.PointsToWin)
	}
}

func TestLoadFlags(t *testing.T) {
	t.Setenv("PONGPPO_EXPERIMENT_EPISODES", "7")

	flags := pflag.NewFlagSet("train", pflag.ContinueOnError)
	flags.Int("episodes", 1, "number of episodes")
	flags.String("model", "", "model path")
	if err := flags.Parse([]string{"--model", "pong.mdl"}); err != nil {
		t.Fatal(err)
	}

	c, err := Load("",
		Bind("experiment.episodes", flags, "episodes"),
		Bind("agent.model_path", flags, "model"),
	)
	if err != nil {
		t.Fatal(err)
	}

	// Unset flags do not override other sources
	if c.Experiment.Episodes != 7 {
		t.Errorf("expected 7 episodes from the environment, got %v",
			c.Experiment.Episodes)
	}
	if c.Agent.ModelPath != "pong.mdl" {
		t.Errorf("expected model path pong.mdl, got %v", c.Agent.ModelPath)
	}

	if _, err := Load("", Bind("agent.seed", flags, "seed")); err == nil {
		t.Error("expected an error binding an undefined flag")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown env", func(c *Config) { c.Env.Name = "breakout" }},
		{"pong actions", func(c *Config) { c.Agent.ActionSpace = 4 }},
		{"gym actions", func(c *Config) {
			c.Env.Name = Gym
			c.Env.GymActions = []int{0, 1}
		}},
		{"gamma", func(c *Config) { c.Agent.Gamma = 1.5 }},
		{"solver", func(c *Config) { c.Agent.Solver = "sgdm" }},
		{"init", func(c *Config) { c.Agent.Init = "orthogonal" }},
		{"device", func(c *Config) { c.Agent.Device = "cuda" }},
		{"rows", func(c *Config) { c.Preprocess.Rows = []int{0, 200} }},
		{"frames", func(c *Config) { c.Preprocess.Frames = 0 }},
		{"episodes", func(c *Config) { c.Experiment.Episodes = 0 }},
		{"step limit", func(c *Config) { c.Env.StepLimit = -1 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := Default()
			test.modify(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestEnvironment(t *testing.T) {
	c := Default()
	c.Env.StepLimit = 3

	e, err := c.Environment()
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if _, ok := e.(*pong.Pong); !ok {
		t.Fatalf("expected a pong environment, got %T", e)
	}
	if n := e.ActionSpec().NumActions(); n != pong.NumActions {
		t.Errorf("expected %v actions, got %v", pong.NumActions, n)
	}

	step, err := e.Reset()
	if err != nil {
		t.Fatal(err)
	}
	for !step.Last() {
		if step, _, err = e.Step(pong.Stay); err != nil {
			t.Fatal(err)
		}
	}
	if step.Number != 3 {
		t.Errorf("expected the episode to end after 3 steps, got %v",
			step.Number)
	}
}

// closeRecorder records when its environment is closed
type closeRecorder struct {
	environment.Environment
	calls *[]string
}

func (c closeRecorder) Close() error {
	*c.calls = append(*c.calls, "environment")
	return nil
}

func TestCloseEnvironment(t *testing.T) {
	var calls []string
	old := closeGym
	closeGym = func() { calls = append(calls, "runtime") }
	defer func() { closeGym = old }()

	tests := []struct {
		name string
		env  string
		want []string
	}{
		{"pong", Pong, []string{"environment"}},
		{"gym", Gym, []string{"environment", "runtime"}},
		{"gym mixed case", "GyM", []string{"environment", "runtime"}},
	}

	for _, test := range tests {
		calls = nil
		c := Default()
		c.Env.Name = test.env

		if err := c.CloseEnvironment(closeRecorder{calls: &calls}); err != nil {
			t.Fatalf("%v: %v", test.name, err)
		}
		if len(calls) != len(test.want) {
			t.Fatalf("%v: expected close order %v, got %v", test.name,
				test.want, calls)
		}
		for i := range calls {
			if calls[i] != test.want[i] {
				t.Errorf("%v: expected close order %v, got %v", test.name,
					test.want, calls)
			}
		}
	}
}
