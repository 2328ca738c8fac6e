package preprocess

import (
	"testing"

	"gorgonia.org/tensor"

	"github.com/samuelfneumann/pongppo/utils/tensorutils"
)

// smallConfig crops columns [1, 5) of a 4x6 RGB frame and decimates by 2,
// giving 2x2 frames
func smallConfig() Config {
	return Config{
		Height:     4,
		Width:      6,
		Channels:   3,
		Rows:       tensorutils.NewSlice(0, 4, 2),
		Cols:       tensorutils.NewSlice(1, 5, 2),
		Background: []float64{58, 43, 48},
		Frames:     2,
	}
}

// uniformFrame returns a frame with every pixel set to rgb
func uniformFrame(c Config, rgb ...float64) *tensor.Dense {
	backing := make([]float64, c.Height*c.Width*c.Channels)
	for i := range backing {
		backing[i] = rgb[i%c.Channels]
	}
	return tensor.New(tensor.WithShape(c.Height, c.Width, c.Channels),
		tensor.WithBacking(backing))
}

func setPixel(frame *tensor.Dense, r, c int, rgb ...float64) {
	for ch, v := range rgb {
		if err := frame.SetAt(v, r, c, ch); err != nil {
			panic(err)
		}
	}
}

func newPreprocessor(t *testing.T, c Config) *Preprocessor {
	t.Helper()
	p, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultShape(t *testing.T) {
	p := newPreprocessor(t, DefaultConfig())

	h, w := p.OutputShape()
	if h != 100 || w != 92 {
		t.Errorf("expected frames of shape (100, 92), got (%v, %v)", h, w)
	}

	obs := uniformFrame(DefaultConfig(), 43, 48, 58)
	state, err := p.Preprocess(obs)
	if err != nil {
		t.Fatal(err)
	}
	if !state.Shape().Eq([]int{1, 2, 100, 92}) {
		t.Errorf("expected state of shape (1, 2, 100, 92), got %v",
			state.Shape())
	}
}

func TestFrame(t *testing.T) {
	c := smallConfig()
	p := newPreprocessor(t, c)

	obs := uniformFrame(c, 43, 48, 58)
	setPixel(obs, 0, 1, 255, 255, 255) // kept
	setPixel(obs, 2, 3, 58, 100, 200)  // kept, red is background
	setPixel(obs, 0, 0, 255, 255, 255) // cropped
	setPixel(obs, 1, 1, 255, 255, 255) // decimated

	frame, err := p.Frame(obs)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{255, 0, 0, 100}
	got := frame.Data().([]float64)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pixel %v: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestFrameUnevenSlices(t *testing.T) {
	c := smallConfig()
	c.Rows = tensorutils.NewSlice(1, 4, 2)
	c.Cols = tensorutils.NewSlice(0, 5, 2)
	p := newPreprocessor(t, c)

	if h, w := p.OutputShape(); h != 2 || w != 3 {
		t.Fatalf("expected frames of shape (2, 3), got (%v, %v)", h, w)
	}

	obs := uniformFrame(c, 43, 48, 58)
	setPixel(obs, 1, 0, 30, 30, 30)
	setPixel(obs, 1, 4, 60, 60, 60)
	setPixel(obs, 3, 2, 90, 90, 90)
	setPixel(obs, 2, 2, 255, 255, 255) // decimated

	frame, err := p.Frame(obs)
	if err != nil {
		t.Fatal(err)
	}
	if !frame.Shape().Eq([]int{2, 3}) {
		t.Fatalf("expected frame of shape (2, 3), got %v", frame.Shape())
	}

	want := []float64{30, 0, 60, 0, 90, 0}
	got := frame.Data().([]float64)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pixel %v: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestStacking(t *testing.T) {
	c := smallConfig()
	p := newPreprocessor(t, c)

	first := uniformFrame(c, 30, 30, 30)
	second := uniformFrame(c, 90, 90, 90)

	// The first frame of an episode is duplicated
	state, err := p.Preprocess(first)
	if err != nil {
		t.Fatal(err)
	}
	checkState(t, state, 30, 30)

	// Later frames are stacked as [current, previous]
	state, err = p.Preprocess(second)
	if err != nil {
		t.Fatal(err)
	}
	checkState(t, state, 90, 30)

	// Reset forgets the carried frame
	p.Reset()
	state, err = p.Preprocess(second)
	if err != nil {
		t.Fatal(err)
	}
	checkState(t, state, 90, 90)
}

func checkState(t *testing.T, state *tensor.Dense, current,
	previous float64) {
	t.Helper()
	data := state.Data().([]float64)
	half := len(data) / 2
	for i := 0; i < half; i++ {
		if data[i] != current {
			t.Fatalf("current frame: expected %v, got %v", current, data[i])
		}
		if data[half+i] != previous {
			t.Fatalf("previous frame: expected %v, got %v", previous,
				data[half+i])
		}
	}
}

func TestDeterminism(t *testing.T) {
	c := DefaultConfig()
	frames := []*tensor.Dense{
		uniformFrame(c, 43, 48, 58),
		uniformFrame(c, 236, 236, 236),
		uniformFrame(c, 58, 10, 20),
	}
	setPixel(frames[0], 50, 50, 236, 236, 236)

	run := func() [][]float64 {
		p := newPreprocessor(t, c)
		var out [][]float64
		for _, f := range frames {
			state, err := p.Preprocess(f)
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, state.Data().([]float64))
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("state %v differs at %v: %v != %v", i, j, a[i][j],
					b[i][j])
			}
		}
	}
}

func TestInputIsNotModified(t *testing.T) {
	c := smallConfig()
	p := newPreprocessor(t, c)

	obs := uniformFrame(c, 58, 43, 48)
	if _, err := p.Preprocess(obs); err != nil {
		t.Fatal(err)
	}
	for i, v := range obs.Data().([]float64) {
		want := []float64{58, 43, 48}[i%3]
		if v != want {
			t.Fatalf("observation modified at %v: got %v", i, v)
		}
	}
}

func TestShapeMismatch(t *testing.T) {
	p := newPreprocessor(t, smallConfig())
	obs := tensor.New(tensor.WithShape(4, 4, 3),
		tensor.WithBacking(make([]float64, 48)))
	if _, err := p.Preprocess(obs); err == nil {
		t.Error("expected error for wrong observation shape")
	}
}

func TestInvalidConfig(t *testing.T) {
	c := smallConfig()
	c.Cols = tensorutils.NewSlice(1, 7, 2)
	if _, err := New(c); err == nil {
		t.Error("expected error for out of range crop")
	}

	c = smallConfig()
	c.Frames = 0
	if _, err := New(c); err == nil {
		t.Error("expected error for zero frames")
	}
}

func TestImage(t *testing.T) {
	frame := tensor.New(tensor.WithShape(1, 2),
		tensor.WithBacking([]float64{-4, 300}))
	img, err := Image(frame)
	if err != nil {
		t.Fatal(err)
	}
	if img.GrayAt(0, 0).Y != 0 || img.GrayAt(1, 0).Y != 255 {
		t.Errorf("expected clamped values 0 and 255, got %v and %v",
			img.GrayAt(0, 0).Y, img.GrayAt(1, 0).Y)
	}
}

func BenchmarkPreprocess(b *testing.B) {
	c := DefaultConfig()
	p, err := New(c)
	if err != nil {
		b.Fatal(err)
	}
	obs := uniformFrame(c, 43, 48, 58)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Preprocess(obs); err != nil {
			b.Fatal(err)
		}
	}
}
