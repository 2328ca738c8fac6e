// Command evaluate plays greedy episodes with saved PPO weights and
// reports the results.
package main

import (
	"fmt"
	"os"

	"github.com/logrusorgru/aurora"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/samuelfneumann/pongppo/agent"
	"github.com/samuelfneumann/pongppo/agent/ppo"
	"github.com/samuelfneumann/pongppo/config"
	"github.com/samuelfneumann/pongppo/environment/pong"
	"github.com/samuelfneumann/pongppo/experiment"
	"github.com/samuelfneumann/pongppo/preprocess"
	"github.com/samuelfneumann/pongppo/utils/logging"
)

// result records the outcome of one evaluation episode
type result struct {
	episode experiment.Episode

	// Scores are only known for the built-in pong environment
	scored           bool
	player, opponent int
}

func main() {
	flags := pflag.NewFlagSet("evaluate", pflag.ExitOnError)
	path := flags.StringP("config", "c", "", "configuration file")
	flags.IntP("episodes", "n", 0, "number of evaluation episodes")
	flags.String("model", "", "weights to evaluate")
	flags.String("log-level", "", "log level")
	noColour := flags.Bool("no-colour", false, "disable coloured output")
	flags.Parse(os.Args[1:])

	c, err := config.Load(*path,
		config.Bind("experiment.episodes", flags, "episodes"),
		config.Bind("agent.model_path", flags, "model"),
		config.Bind("log.level", flags, "log-level"),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluate: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, c.Log.Level, c.Log.Console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluate: %v\n", err)
		os.Exit(1)
	}

	results, status, err := evaluate(c, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("evaluation failed")
	}

	au := aurora.NewAurora(!*noColour)
	summarize(au, c.Agent.ModelPath, status, results)
}

func evaluate(c config.Config, logger zerolog.Logger) ([]result,
	agent.LoadStatus, error) {
	e, err := c.Environment()
	if err != nil {
		return nil, agent.NotFound, err
	}
	defer c.CloseEnvironment(e)

	preConfig, err := c.PreprocessConfig()
	if err != nil {
		return nil, agent.NotFound, err
	}
	pre, err := preprocess.New(preConfig)
	if err != nil {
		return nil, agent.NotFound, err
	}

	agentConfig, err := c.PPO(&logger)
	if err != nil {
		return nil, agent.NotFound, err
	}
	agentConfig.Evaluation = true
	a, err := ppo.New(agentConfig, pre)
	if err != nil {
		return nil, agent.NotFound, err
	}
	defer a.Close()

	status, err := a.LoadModel()
	if err != nil {
		return nil, status, err
	}

	exp, err := experiment.NewOnline(e, a, c.Experiment.Episodes, nil, nil,
		logger)
	if err != nil {
		return nil, status, err
	}

	results := make([]result, 0, c.Experiment.Episodes)
	for i := 0; i < c.Experiment.Episodes; i++ {
		episode, err := exp.RunEpisode()
		if err != nil {
			return nil, status, err
		}

		r := result{episode: episode}
		if p, ok := e.(*pong.Pong); ok {
			r.scored = true
			r.player, r.opponent = p.Scores()
		}
		results = append(results, r)
	}
	return results, status, nil
}

// summarize prints one line per episode followed by the win rate
func summarize(au aurora.Aurora, model string, status agent.LoadStatus,
	results []result) {
	if status == agent.NotFound {
		fmt.Println(au.Yellow(fmt.Sprintf("no weights found at %v, "+
			"evaluated freshly initialized weights", model)))
	}

	var wins int
	var total float64
	for _, r := range results {
		line := fmt.Sprintf("episode %3d: return %+4.0f, %5d steps",
			r.episode.Number, r.episode.Return, r.episode.Steps)
		if r.scored {
			line += fmt.Sprintf(", score %d-%d", r.player, r.opponent)
		}

		total += r.episode.Return
		if r.episode.Return > 0 {
			wins++
			fmt.Println(au.Green(line))
		} else {
			fmt.Println(au.Red(line))
		}
	}

	if len(results) == 0 {
		return
	}
	fmt.Println(au.Bold(fmt.Sprintf("won %d of %d episodes, mean return "+
		"%.2f", wins, len(results), total/float64(len(results)))))
}
