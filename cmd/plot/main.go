// Command plot renders the learning curves saved by train as an HTML
// page.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/samuelfneumann/pongppo/experiment/tracker"
	"github.com/samuelfneumann/pongppo/report"
)

func main() {
	flags := pflag.NewFlagSet("plot", pflag.ExitOnError)
	data := flags.StringP("data", "d", "data", "directory of saved curves")
	out := flags.StringP("output", "o", "report.html", "HTML file to write")
	title := flags.String("title", "PPO Pong", "page title")
	window := flags.IntP("window", "w", 100, "moving average window")
	flags.Parse(os.Args[1:])

	if err := plot(*data, *out, *title, *window); err != nil {
		fmt.Fprintf(os.Stderr, "plot: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote", *out)
}

func plot(dir, out, title string, window int) error {
	var curves report.Curves
	for _, curve := range []struct {
		file string
		dest *[]float64
	}{
		{"return.bin", &curves.Returns},
		{"length.bin", &curves.Lengths},
		{"loss.bin", &curves.Losses},
	} {
		path := filepath.Join(dir, curve.file)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}

		values, err := tracker.LoadData(path)
		if err != nil {
			return err
		}
		*curve.dest = values
	}

	file, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := report.Render(file, title, window, curves); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
