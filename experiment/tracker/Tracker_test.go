package tracker

import (
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/pongppo/agent"
	ts "github.com/samuelfneumann/pongppo/timestep"
)

// episode returns the timesteps of an episode with the given rewards
// after the first timestep
func episode(rewards []float64) []ts.TimeStep {
	steps := []ts.TimeStep{ts.New(ts.First, 0, 0, nil, 0)}
	for i, r := range rewards {
		t := ts.Mid
		if i == len(rewards)-1 {
			t = ts.Last
		}
		steps = append(steps, ts.New(t, r, 0.99, nil, i+1))
	}
	return steps
}

func TestReturnAndEpisodeLength(t *testing.T) {
	dir := t.TempDir()
	ret := NewReturn(filepath.Join(dir, "return.bin"))
	length := NewEpisodeLength(filepath.Join(dir, "length.bin"))

	episodes := [][]float64{
		{0, 1, 0, -1, 1},
		{-1, -1},
	}
	for _, rewards := range episodes {
		for _, step := range episode(rewards) {
			ret.Track(step)
			length.Track(step)
		}
	}

	tests := []struct {
		name    string
		tracker Tracker
		file    string
		want    []float64
	}{
		{"return", ret, "return.bin", []float64{1, -2}},
		{"length", length, "length.bin", []float64{5, 2}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := test.tracker.Save(); err != nil {
				t.Fatal(err)
			}
			got, err := LoadData(filepath.Join(dir, test.file))
			if err != nil {
				t.Fatal(err)
			}

			if len(got) != len(test.want) {
				t.Fatalf("expected %v, got %v", test.want, got)
			}
			for i := range got {
				if got[i] != test.want[i] {
					t.Errorf("expected %v, got %v", test.want, got)
					break
				}
			}
		})
	}
}

func TestReturnNonSequential(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for non-sequential timesteps")
		}
	}()

	ret := NewReturn("")
	ret.Track(ts.New(ts.First, 0, 0, nil, 0))
	ret.Track(ts.New(ts.Mid, 0, 0.99, nil, 2))
}

func TestLoss(t *testing.T) {
	var l UpdateTracker = NewLoss(filepath.Join(t.TempDir(), "loss.bin"))
	l.TrackUpdate(agent.Update{Loss: 0.5})
	l.TrackUpdate(agent.Update{Skipped: true})
	l.TrackUpdate(agent.Update{Loss: -0.25})

	got := l.(*Loss).Data()
	if len(got) != 2 || got[0] != 0.5 || got[1] != -0.25 {
		t.Errorf("expected [0.5 -0.25], got %v", got)
	}
	if err := l.Save(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDataMissing(t *testing.T) {
	if _, err := LoadData(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("expected an error loading a missing file")
	}
}
