// Package report renders learning curves of an experiment as an HTML
// page of interactive charts.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
)

// Curves holds the per-episode data tracked during an experiment. Any
// of the curves may be empty, in which case its chart is omitted.
type Curves struct {
	Returns []float64
	Lengths []float64

	// Losses holds one value per policy update that was not skipped
	Losses []float64
}

// Render writes an HTML page charting the curves to w. Returns are
// plotted together with their moving average over window episodes.
func Render(w io.Writer, title string, window int, c Curves) error {
	if window < 1 {
		return fmt.Errorf("render: window must be positive, got %v", window)
	}
	if len(c.Returns) == 0 && len(c.Lengths) == 0 && len(c.Losses) == 0 {
		return fmt.Errorf("render: no data to plot")
	}

	page := components.NewPage()
	if len(c.Returns) > 0 {
		line, err := newLine(title, "Episode", "Return", c.Returns)
		if err != nil {
			return fmt.Errorf("render: returns: %v", err)
		}
		avg, err := lineData(MovingAverage(c.Returns, window))
		if err != nil {
			return fmt.Errorf("render: returns: %v", err)
		}
		line.AddSeries(fmt.Sprintf("Moving average (%d)", window), avg)
		page.AddCharts(line)
	}

	for _, curve := range []struct {
		name, xAxis string
		data        []float64
	}{
		{"Episode length", "Episode", c.Lengths},
		{"Loss", "Update", c.Losses},
	} {
		if len(curve.data) == 0 {
			continue
		}
		line, err := newLine(curve.name, curve.xAxis, curve.name, curve.data)
		if err != nil {
			return fmt.Errorf("render: %v: %v", curve.name, err)
		}
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render: %v", err)
	}
	return nil
}

// newLine returns a line chart of data against its 1-based index
func newLine(title, xName, yName string, data []float64) (*charts.Line,
	error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Theme:     "shine",
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	x := make([]string, len(data))
	for i := range x {
		x[i] = strconv.Itoa(i + 1)
	}

	items, err := lineData(data)
	if err != nil {
		return nil, err
	}
	line.SetXAxis(x).AddSeries(yName, items)
	return line, nil
}

// lineData converts data to chart items. Charts are serialized as JSON,
// which cannot represent NaN or infinite values.
func lineData(data []float64) ([]opts.LineData, error) {
	items := make([]opts.LineData, len(data))
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("value %v at index %v cannot be plotted",
				v, i)
		}
		items[i] = opts.LineData{Value: v}
	}
	return items, nil
}

// MovingAverage returns the trailing mean of data over window values.
// The first window-1 entries average over all values seen so far.
func MovingAverage(data []float64, window int) []float64 {
	avg := make([]float64, len(data))
	for i := range data {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		avg[i] = stat.Mean(data[start:i+1], nil)
	}
	return avg
}
