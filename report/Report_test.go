package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestMovingAverage(t *testing.T) {
	data := []float64{1, 3, 5, 7, 9}
	want := []float64{1, 2, 3, 5, 7}

	got := MovingAverage(data, 3)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("index %v: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, "Pong returns", 2, Curves{
		Returns: []float64{-21, -20, -18},
		Lengths: []float64{900, 950, 1010},
		Losses:  []float64{0.1, -0.05},
	})
	if err != nil {
		t.Fatal(err)
	}

	html := buf.String()
	for _, want := range []string{"<html", "Pong returns", "Moving average",
		"Episode length", "Loss"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected rendered page to contain %q", want)
		}
	}
}

func TestRenderInvalid(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, "empty", 10, Curves{}); err == nil {
		t.Error("expected an error for empty curves")
	}
	if err := Render(&buf, "window", 0, Curves{Returns: []float64{1}}); err == nil {
		t.Error("expected an error for a window of 0")
	}

	curves := Curves{Losses: []float64{1, math.NaN()}}
	if err := Render(&buf, "nan", 1, curves); err == nil {
		t.Error("expected an error for a NaN loss")
	}
}
