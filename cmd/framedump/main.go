// Command framedump plays pong with random actions and writes each raw
// frame and its preprocessed frame as PNG images, for inspecting what
// the agent sees.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/spf13/pflag"
	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/pongppo/config"
	"github.com/samuelfneumann/pongppo/environment"
	"github.com/samuelfneumann/pongppo/environment/pong"
	"github.com/samuelfneumann/pongppo/experiment/checkpointer"
	"github.com/samuelfneumann/pongppo/preprocess"
)

func main() {
	flags := pflag.NewFlagSet("framedump", pflag.ExitOnError)
	path := flags.StringP("config", "c", "", "configuration file")
	out := flags.StringP("output", "o", "frames", "directory to write to")
	steps := flags.IntP("steps", "n", 50, "number of frames to dump")
	seed := flags.Uint64("seed", 1, "seed of the random actions")
	flags.Parse(os.Args[1:])

	c, err := config.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "framedump: %v\n", err)
		os.Exit(1)
	}

	if err := dump(c, *out, *steps, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "framedump: %v\n", err)
		os.Exit(1)
	}
}

func dump(c config.Config, dir string, steps int, seed uint64) error {
	preConfig, err := c.PreprocessConfig()
	if err != nil {
		return err
	}
	pre, err := preprocess.New(preConfig)
	if err != nil {
		return err
	}

	// Frames are only dumped from the built-in game, which can render
	// itself
	p, err := pong.New(pong.Config{
		PointsToWin:   c.Env.PointsToWin,
		OpponentSkill: c.Env.OpponentSkill,
		Seed:          c.Env.Seed,
	}, environment.NewStepLimit(steps))
	if err != nil {
		return err
	}
	defer p.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	rawName := checkpointer.FilenameEnumerator(0, 4,
		filepath.Join(dir, "raw_"), ".png")
	frameName := checkpointer.FilenameEnumerator(0, 4,
		filepath.Join(dir, "frame_"), ".png")

	rng := rand.New(rand.NewSource(seed))
	step, err := p.Reset()
	if err != nil {
		return err
	}
	for {
		if err := gg.SavePNG(rawName(), p.Render()); err != nil {
			return err
		}

		frame, err := pre.Frame(step.Observation)
		if err != nil {
			return err
		}
		img, err := preprocess.Image(frame)
		if err != nil {
			return err
		}
		if err := gg.SavePNG(frameName(), img); err != nil {
			return err
		}

		if step.Last() {
			break
		}
		if step, _, err = p.Step(rng.Intn(pong.NumActions)); err != nil {
			return err
		}
	}

	fmt.Printf("wrote %d frames to %v\n", step.Number+1, dir)
	return nil
}
