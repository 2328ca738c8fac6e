// Command train trains a PPO agent to play pong from raw frames.
//
// Configuration is read from an optional YAML, JSON, or TOML file,
// overridden by PONGPPO_* environment variables and then by flags. The
// agent starts from the weights at agent.model_path if that file exists.
// Weights are saved to the output directory every save_every episodes
// and once more when training finishes.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/samuelfneumann/pongppo/agent/ppo"
	"github.com/samuelfneumann/pongppo/config"
	"github.com/samuelfneumann/pongppo/experiment"
	"github.com/samuelfneumann/pongppo/experiment/checkpointer"
	"github.com/samuelfneumann/pongppo/experiment/tracker"
	"github.com/samuelfneumann/pongppo/preprocess"
	"github.com/samuelfneumann/pongppo/utils/logging"
)

func main() {
	flags := pflag.NewFlagSet("train", pflag.ExitOnError)
	path := flags.StringP("config", "c", "", "configuration file")
	flags.IntP("episodes", "n", 0, "number of training episodes")
	flags.String("model", "", "weights to start training from")
	flags.String("output", "", "directory to save weights in")
	flags.String("data", "", "directory to save learning curves in")
	flags.Uint64("seed", 0, "agent seed")
	flags.String("log-level", "", "log level")
	flags.Bool("progress", false, "show a progress bar")
	flags.Parse(os.Args[1:])

	c, err := config.Load(*path,
		config.Bind("experiment.episodes", flags, "episodes"),
		config.Bind("agent.model_path", flags, "model"),
		config.Bind("experiment.output_dir", flags, "output"),
		config.Bind("experiment.data_dir", flags, "data"),
		config.Bind("agent.seed", flags, "seed"),
		config.Bind("log.level", flags, "log-level"),
		config.Bind("experiment.progress", flags, "progress"),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "train: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, c.Log.Level, c.Log.Console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "train: %v\n", err)
		os.Exit(1)
	}

	if err := train(c, logger); err != nil {
		logger.Fatal().Err(err).Msg("training failed")
	}
}

func train(c config.Config, logger zerolog.Logger) error {
	e, err := c.Environment()
	if err != nil {
		return err
	}
	defer c.CloseEnvironment(e)

	preConfig, err := c.PreprocessConfig()
	if err != nil {
		return err
	}
	pre, err := preprocess.New(preConfig)
	if err != nil {
		return err
	}

	agentConfig, err := c.PPO(&logger)
	if err != nil {
		return err
	}
	agentConfig.Evaluation = false
	agent, err := ppo.New(agentConfig, pre)
	if err != nil {
		return err
	}
	defer agent.Close()

	if _, err := agent.LoadModel(); err != nil {
		return err
	}

	if err := os.MkdirAll(c.Experiment.DataDir, 0o755); err != nil {
		return fmt.Errorf("could not create data directory: %v", err)
	}
	trackers := []tracker.Tracker{
		tracker.NewReturn(filepath.Join(c.Experiment.DataDir, "return.bin")),
		tracker.NewEpisodeLength(filepath.Join(c.Experiment.DataDir,
			"length.bin")),
		tracker.NewLoss(filepath.Join(c.Experiment.DataDir, "loss.bin")),
	}

	var checkpointers []checkpointer.Checkpointer
	if c.Experiment.SaveEvery > 0 {
		check, err := checkpointer.NewNEpisode(c.Experiment.SaveEvery, agent,
			c.Experiment.OutputDir)
		if err != nil {
			return err
		}
		checkpointers = append(checkpointers, check)
	}

	exp, err := experiment.NewOnline(e, agent, c.Experiment.Episodes,
		trackers, checkpointers, logger)
	if err != nil {
		return err
	}
	if c.Experiment.Progress {
		exp.ShowProgress(os.Stdout)
	}

	logger.Info().
		Str("agent", agent.Name()).
		Str("env", c.Env.Name).
		Int("episodes", c.Experiment.Episodes).
		Msg("training started")

	runErr := exp.Run()

	// Keep whatever was learned and tracked even if an episode failed
	if err := exp.Save(); err != nil {
		return err
	}
	path, err := agent.SaveModel(c.Experiment.OutputDir,
		c.Experiment.Episodes)
	if err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	logger.Info().Str("model", path).Msg("training finished")
	return nil
}
