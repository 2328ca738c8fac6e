// Package config loads the configuration of training and evaluation
// runs from files and environment variables and builds the components
// it describes.
package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/samuelfneumann/pongppo/agent/ppo"
	"github.com/samuelfneumann/pongppo/environment"
	"github.com/samuelfneumann/pongppo/environment/gym"
	"github.com/samuelfneumann/pongppo/environment/pong"
	"github.com/samuelfneumann/pongppo/initwfn"
	"github.com/samuelfneumann/pongppo/network"
	"github.com/samuelfneumann/pongppo/preprocess"
	"github.com/samuelfneumann/pongppo/solver"
	"github.com/samuelfneumann/pongppo/utils/tensorutils"
)

// EnvPrefix prefixes environment variables that override configuration
// values, e.g. PONGPPO_AGENT_GAMMA overrides agent.gamma
const EnvPrefix = "PONGPPO"

// Environment names
const (
	Pong = "pong"
	Gym  = "gym"
)

// Config is the complete configuration of a run
type Config struct {
	Agent      Agent      `mapstructure:"agent"`
	Preprocess Preprocess `mapstructure:"preprocess"`
	Env        Env        `mapstructure:"env"`
	Experiment Experiment `mapstructure:"experiment"`
	Log        Log        `mapstructure:"log"`
}

// Agent configures the PPO agent
type Agent struct {
	ActionSpace  int       `mapstructure:"action_space"`
	Gamma        float64   `mapstructure:"gamma"`
	Clip         float64   `mapstructure:"clip"`
	Epochs       int       `mapstructure:"epochs"`
	BatchCap     int       `mapstructure:"batch_cap"`
	MinStd       float64   `mapstructure:"min_std"`
	Solver       string    `mapstructure:"solver"`
	LearningRate float64   `mapstructure:"learning_rate"`
	GradClip     float64   `mapstructure:"grad_clip"`
	Init         string    `mapstructure:"init"`
	InitGain     float64   `mapstructure:"init_gain"`
	Convs        []ConvNet `mapstructure:"convs"`
	Hidden       []int     `mapstructure:"hidden"`
	ModelPath    string    `mapstructure:"model_path"`
	Eval         bool      `mapstructure:"eval"`
	Device       string    `mapstructure:"device"`
	PlayerID     int       `mapstructure:"player_id"`
	Seed         uint64    `mapstructure:"seed"`
}

// ConvNet configures a single convolutional layer
type ConvNet struct {
	Filters int `mapstructure:"filters"`
	Kernel  int `mapstructure:"kernel"`
	Stride  int `mapstructure:"stride"`
}

// Preprocess configures frame preprocessing. Rows and Cols are given as
// [start, stop, step].
type Preprocess struct {
	Height     int       `mapstructure:"height"`
	Width      int       `mapstructure:"width"`
	Channels   int       `mapstructure:"channels"`
	Rows       []int     `mapstructure:"rows"`
	Cols       []int     `mapstructure:"cols"`
	Background []float64 `mapstructure:"background"`
	Frames     int       `mapstructure:"frames"`
}

// Env configures the environment
type Env struct {
	Name          string  `mapstructure:"name"`
	PointsToWin   int     `mapstructure:"points_to_win"`
	OpponentSkill float64 `mapstructure:"opponent_skill"`
	StepLimit     int     `mapstructure:"step_limit"`
	Seed          uint64  `mapstructure:"seed"`

	// GymName and GymActions select a Gym environment and map agent
	// actions to its actions
	GymName    string `mapstructure:"gym_name"`
	GymActions []int  `mapstructure:"gym_actions"`
}

// Experiment configures an online experiment
type Experiment struct {
	Episodes  int    `mapstructure:"episodes"`
	OutputDir string `mapstructure:"output_dir"`
	SaveEvery int    `mapstructure:"save_every"`
	DataDir   string `mapstructure:"data_dir"`
	Progress  bool   `mapstructure:"progress"`
}

// Log configures logging
type Log struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// Default returns the default configuration: training on the built-in
// pong environment with the default agent and preprocessing.
func Default() Config {
	agent := ppo.DefaultConfig()
	pre := preprocess.DefaultConfig()
	env := pong.DefaultConfig()

	convs := make([]ConvNet, len(agent.Convs))
	for i, c := range agent.Convs {
		convs[i] = ConvNet{Filters: c.Filters, Kernel: c.Kernel,
			Stride: c.Stride}
	}

	return Config{
		Agent: Agent{
			ActionSpace:  agent.ActionSpace,
			Gamma:        agent.Gamma,
			Clip:         agent.Epsilon,
			Epochs:       agent.Epochs,
			BatchCap:     agent.BatchCap,
			MinStd:       agent.MinStd,
			Solver:       string(solver.Adam),
			LearningRate: 1e-4,
			Init:         string(initwfn.GlorotU),
			InitGain:     1.0,
			Convs:        convs,
			Hidden:       agent.HiddenSizes,
			ModelPath:    agent.ModelPath,
			Device:       agent.Device,
			PlayerID:     agent.PlayerID,
		},
		Preprocess: Preprocess{
			Height:   pre.Height,
			Width:    pre.Width,
			Channels: pre.Channels,
			Rows: []int{pre.Rows.Start(), pre.Rows.End(),
				pre.Rows.Step()},
			Cols: []int{pre.Cols.Start(), pre.Cols.End(),
				pre.Cols.Step()},
			Background: pre.Background,
			Frames:     pre.Frames,
		},
		Env: Env{
			Name:          Pong,
			PointsToWin:   env.PointsToWin,
			OpponentSkill: env.OpponentSkill,
			GymName:       "Pong-v0",
			GymActions:    []int{0, 2, 3},
		},
		Experiment: Experiment{
			Episodes:  1000,
			OutputDir: "models",
			SaveEvery: 100,
			DataDir:   "data",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// setDefaults registers every value of Default with v, so that each key
// can also be overridden through the environment
func setDefaults(v *viper.Viper) {
	d := Default()

	convs := make([]map[string]interface{}, len(d.Agent.Convs))
	for i, c := range d.Agent.Convs {
		convs[i] = map[string]interface{}{
			"filters": c.Filters,
			"kernel":  c.Kernel,
			"stride":  c.Stride,
		}
	}

	defaults := map[string]interface{}{
		"agent.action_space":  d.Agent.ActionSpace,
		"agent.gamma":         d.Agent.Gamma,
		"agent.clip":          d.Agent.Clip,
		"agent.epochs":        d.Agent.Epochs,
		"agent.batch_cap":     d.Agent.BatchCap,
		"agent.min_std":       d.Agent.MinStd,
		"agent.solver":        d.Agent.Solver,
		"agent.learning_rate": d.Agent.LearningRate,
		"agent.grad_clip":     d.Agent.GradClip,
		"agent.init":          d.Agent.Init,
		"agent.init_gain":     d.Agent.InitGain,
		"agent.convs":         convs,
		"agent.hidden":        d.Agent.Hidden,
		"agent.model_path":    d.Agent.ModelPath,
		"agent.eval":          d.Agent.Eval,
		"agent.device":        d.Agent.Device,
		"agent.player_id":     d.Agent.PlayerID,
		"agent.seed":          d.Agent.Seed,

		"preprocess.height":     d.Preprocess.Height,
		"preprocess.width":      d.Preprocess.Width,
		"preprocess.channels":   d.Preprocess.Channels,
		"preprocess.rows":       d.Preprocess.Rows,
		"preprocess.cols":       d.Preprocess.Cols,
		"preprocess.background": d.Preprocess.Background,
		"preprocess.frames":     d.Preprocess.Frames,

		"env.name":           d.Env.Name,
		"env.points_to_win":  d.Env.PointsToWin,
		"env.opponent_skill": d.Env.OpponentSkill,
		"env.step_limit":     d.Env.StepLimit,
		"env.seed":           d.Env.Seed,
		"env.gym_name":       d.Env.GymName,
		"env.gym_actions":    d.Env.GymActions,

		"experiment.episodes":   d.Experiment.Episodes,
		"experiment.output_dir": d.Experiment.OutputDir,
		"experiment.save_every": d.Experiment.SaveEvery,
		"experiment.data_dir":   d.Experiment.DataDir,
		"experiment.progress":   d.Experiment.Progress,

		"log.level":   d.Log.Level,
		"log.console": d.Log.Console,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Flag binds a command-line flag to a configuration key. A flag that was
// set on the command line overrides every other source of the key.
type Flag struct {
	Key  string
	Flag *pflag.Flag
}

// Bind returns a Flag binding the named flag of flags to key
func Bind(key string, flags *pflag.FlagSet, name string) Flag {
	return Flag{Key: key, Flag: flags.Lookup(name)}
}

// Load reads the configuration file at path, which may be YAML, JSON, or
// TOML, over the defaults. If path is empty, only the defaults and
// overrides are used. Values are taken, in order of precedence, from
// the bound flags, the environment, the file, and the defaults.
func Load(path string, flags ...Flag) (Config, error) {
	v := viper.New()
	setDefaults(v)

	for _, f := range flags {
		if f.Flag == nil {
			return Config{}, fmt.Errorf("load: no flag bound to %v", f.Key)
		}
		if err := v.BindPFlag(f.Key, f.Flag); err != nil {
			return Config{}, fmt.Errorf("load: %v", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("load: could not read config: %v",
				err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("load: could not decode config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: %v", err)
	}
	return c, nil
}

// Validate checks the configuration for illegal values. Values checked
// by the components themselves are validated when they are built.
func (c Config) Validate() error {
	if _, err := c.PreprocessConfig(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if _, err := c.PPO(nil); err != nil {
		return fmt.Errorf("validate: %v", err)
	}

	switch strings.ToLower(c.Env.Name) {
	case Pong:
		if c.Agent.ActionSpace != pong.NumActions {
			return fmt.Errorf("validate: pong has %v actions but the agent "+
				"has %v", pong.NumActions, c.Agent.ActionSpace)
		}
	case Gym:
		if len(c.Env.GymActions) != c.Agent.ActionSpace {
			return fmt.Errorf("validate: %v gym actions mapped for an agent "+
				"with %v actions", len(c.Env.GymActions), c.Agent.ActionSpace)
		}
	default:
		return fmt.Errorf("validate: unknown environment %q", c.Env.Name)
	}

	if c.Env.StepLimit < 0 {
		return fmt.Errorf("validate: step limit must be non-negative, got "+
			"%v", c.Env.StepLimit)
	}
	if c.Experiment.Episodes < 1 {
		return fmt.Errorf("validate: at least one episode is required, got "+
			"%v", c.Experiment.Episodes)
	}
	if c.Experiment.SaveEvery < 0 {
		return fmt.Errorf("validate: save interval must be non-negative, "+
			"got %v", c.Experiment.SaveEvery)
	}
	return nil
}

// PreprocessConfig returns the frame preprocessing configuration
func (c Config) PreprocessConfig() (preprocess.Config, error) {
	p := c.Preprocess
	if len(p.Rows) != 3 || len(p.Cols) != 3 {
		return preprocess.Config{}, fmt.Errorf("preprocessConfig: rows "+
			"and cols must be [start, stop, step], got %v and %v", p.Rows,
			p.Cols)
	}

	pc := preprocess.Config{
		Height:     p.Height,
		Width:      p.Width,
		Channels:   p.Channels,
		Rows:       tensorutils.NewSlice(p.Rows[0], p.Rows[1], p.Rows[2]),
		Cols:       tensorutils.NewSlice(p.Cols[0], p.Cols[1], p.Cols[2]),
		Background: p.Background,
		Frames:     p.Frames,
	}
	if err := pc.Validate(); err != nil {
		return preprocess.Config{}, fmt.Errorf("preprocessConfig: %v", err)
	}
	return pc, nil
}

// PPO returns the agent configuration. The logger may be nil.
func (c Config) PPO(logger *zerolog.Logger) (ppo.Config, error) {
	a := c.Agent

	s, err := solver.New(a.Solver, a.LearningRate, a.GradClip)
	if err != nil {
		return ppo.Config{}, fmt.Errorf("ppo: %v", err)
	}
	init, err := initwfn.New(a.Init, a.InitGain)
	if err != nil {
		return ppo.Config{}, fmt.Errorf("ppo: %v", err)
	}

	convs := make([]network.ConvLayer, len(a.Convs))
	for i, conv := range a.Convs {
		convs[i] = network.ConvLayer{
			Filters: conv.Filters,
			Kernel:  conv.Kernel,
			Stride:  conv.Stride,
		}
	}

	pc := ppo.Config{
		ActionSpace: a.ActionSpace,
		Gamma:       a.Gamma,
		Epsilon:     a.Clip,
		Epochs:      a.Epochs,
		BatchCap:    a.BatchCap,
		MinStd:      a.MinStd,
		Convs:       convs,
		HiddenSizes: a.Hidden,
		Solver:      s,
		InitWFn:     init,
		ModelPath:   a.ModelPath,
		Evaluation:  a.Eval,
		PlayerID:    a.PlayerID,
		Device:      a.Device,
		Seed:        a.Seed,
		Logger:      logger,
	}
	if err := pc.Validate(); err != nil {
		return ppo.Config{}, fmt.Errorf("ppo: %v", err)
	}
	return pc, nil
}

// Environment creates the configured environment
func (c Config) Environment() (environment.Environment, error) {
	ender := environment.NewStepLimit(c.Env.StepLimit)

	switch strings.ToLower(c.Env.Name) {
	case Pong:
		e, err := pong.New(pong.Config{
			PointsToWin:   c.Env.PointsToWin,
			OpponentSkill: c.Env.OpponentSkill,
			Seed:          c.Env.Seed,
		}, ender)
		if err != nil {
			return nil, fmt.Errorf("environment: %v", err)
		}
		return e, nil

	case Gym:
		e, err := gym.New(gym.Config{
			Name: c.Env.GymName,
			Shape: []int{c.Preprocess.Height, c.Preprocess.Width,
				c.Preprocess.Channels},
			Actions:  c.Env.GymActions,
			Discount: c.Agent.Gamma,
			Seed:     c.Env.Seed,
		}, ender)
		if err != nil {
			return nil, fmt.Errorf("environment: %v", err)
		}
		return e, nil
	}

	return nil, fmt.Errorf("environment: unknown environment %q", c.Env.Name)
}

// closeGym shuts down the Python runtime backing Gym environments
var closeGym = gym.Close

// CloseEnvironment closes an environment created by Environment. For Gym
// environments the Python runtime is shut down only after the environment
// itself has been closed.
func (c Config) CloseEnvironment(e environment.Environment) error {
	err := e.Close()
	if strings.EqualFold(c.Env.Name, Gym) {
		closeGym()
	}
	if err != nil {
		return fmt.Errorf("close environment: %v", err)
	}
	return nil
}
