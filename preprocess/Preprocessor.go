// Package preprocess converts raw RGB game frames into the stacked
// grayscale states consumed by the policy network.
//
// A raw frame of shape (height, width, channels) is cropped, decimated by
// the crop's step, has its background colours set to zero, and is
// averaged over channels. The resulting frame is stacked with the frames
// seen before it in the episode so that motion is observable.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gorgonia.org/tensor"

	"github.com/samuelfneumann/pongppo/utils/tensorutils"
)

// Config configures a Preprocessor
type Config struct {
	// Shape of raw frames
	Height, Width, Channels int

	// Rows and Cols select the cropped and decimated region of the frame
	Rows, Cols tensorutils.Slice

	// Background lists channel values that are set to zero before
	// averaging. Each channel value is compared independently.
	Background []float64

	// Frames is the number of frames in a stacked state
	Frames int
}

// DefaultConfig returns the preprocessing configuration for 200x200 RGB
// pong frames. Columns are cropped to [8, 192) and both dimensions are
// decimated by 2, resulting in 100x92 frames.
func DefaultConfig() Config {
	return Config{
		Height:     200,
		Width:      200,
		Channels:   3,
		Rows:       tensorutils.NewSlice(0, 200, 2),
		Cols:       tensorutils.NewSlice(8, 192, 2),
		Background: []float64{58, 43, 48},
		Frames:     2,
	}
}

// Validate checks that the configuration is legal
func (c Config) Validate() error {
	if c.Height <= 0 || c.Width <= 0 || c.Channels <= 0 {
		return fmt.Errorf("validate: frame shape must be positive, got "+
			"(%v, %v, %v)", c.Height, c.Width, c.Channels)
	}
	if err := c.Rows.Validate(c.Height); err != nil {
		return fmt.Errorf("validate: rows: %v", err)
	}
	if err := c.Cols.Validate(c.Width); err != nil {
		return fmt.Errorf("validate: cols: %v", err)
	}
	if c.Frames < 1 {
		return fmt.Errorf("validate: at least one frame must be stacked, "+
			"got %v", c.Frames)
	}
	return nil
}

// Preprocessor converts raw frames into stacked states. The Preprocessor
// carries the frames seen so far in the current episode and must be Reset
// at the start of every episode.
type Preprocessor struct {
	height, width, channels int
	rows, cols              tensorutils.Slice
	background              map[float64]struct{}
	frames                  int

	// previous holds earlier frames, most recent first
	previous [][]float64
}

// New returns a new Preprocessor
func New(c Config) (*Preprocessor, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	background := make(map[float64]struct{}, len(c.Background))
	for _, v := range c.Background {
		background[v] = struct{}{}
	}

	return &Preprocessor{
		height:     c.Height,
		width:      c.Width,
		channels:   c.Channels,
		rows:       c.Rows,
		cols:       c.Cols,
		background: background,
		frames:     c.Frames,
	}, nil
}

// OutputShape returns the shape of a single preprocessed frame
func (p *Preprocessor) OutputShape() (height, width int) {
	return p.rows.Len(), p.cols.Len()
}

// Frames returns the number of frames in a stacked state
func (p *Preprocessor) Frames() int {
	return p.frames
}

// StateShape returns the shape of stacked states
func (p *Preprocessor) StateShape() []int {
	h, w := p.OutputShape()
	return []int{1, p.frames, h, w}
}

// Reset clears the frames carried from the previous episode
func (p *Preprocessor) Reset() {
	p.previous = nil
}

// Frame converts a raw frame into a single preprocessed frame of shape
// OutputShape(). Frame does not change the carried frames.
func (p *Preprocessor) Frame(observation *tensor.Dense) (*tensor.Dense,
	error) {
	data, err := p.frame(observation)
	if err != nil {
		return nil, fmt.Errorf("frame: %v", err)
	}

	h, w := p.OutputShape()
	return tensor.New(tensor.WithShape(h, w), tensor.WithBacking(data)), nil
}

// Preprocess converts a raw frame into a stacked state of shape
// StateShape(). The current frame comes first, followed by earlier frames
// from most to least recent. On the first call after a Reset, the current
// frame fills every slot of the stack.
func (p *Preprocessor) Preprocess(observation *tensor.Dense) (*tensor.Dense,
	error) {
	current, err := p.frame(observation)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %v", err)
	}

	if p.previous == nil {
		p.previous = make([][]float64, p.frames-1)
		for i := range p.previous {
			p.previous[i] = current
		}
	}

	size := len(current)
	backing := make([]float64, 0, size*p.frames)
	backing = append(backing, current...)
	for _, frame := range p.previous {
		backing = append(backing, frame...)
	}

	// Frames are never modified once created, so the history can hold
	// references instead of copies
	if len(p.previous) > 0 {
		copy(p.previous[1:], p.previous[:len(p.previous)-1])
		p.previous[0] = current
	}

	return tensor.New(
		tensor.WithShape(p.StateShape()...),
		tensor.WithBacking(backing),
	), nil
}

// frame crops, decimates, removes the background of, and averages the
// channels of a raw frame
func (p *Preprocessor) frame(observation *tensor.Dense) ([]float64, error) {
	if observation == nil {
		return nil, fmt.Errorf("nil observation")
	}
	if shape := observation.Shape(); !shape.Eq(tensor.Shape{p.height,
		p.width, p.channels}) {
		return nil, fmt.Errorf("observation shape %v does not match "+
			"expected shape (%v, %v, %v)", shape, p.height, p.width,
			p.channels)
	}
	raw, ok := observation.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("observation must be of type float64, got "+
			"%v", observation.Dtype())
	}

	// A leading unit axis keeps gorgonia from rounding down the length of
	// a stepped slice over the outermost axis
	batched := tensor.New(
		tensor.WithShape(1, p.height, p.width, p.channels),
		tensor.WithBacking(raw),
	)
	view, err := batched.Slice(nil, p.rows, p.cols, nil)
	if err != nil {
		return nil, fmt.Errorf("could not crop observation: %v", err)
	}
	cropped, ok := view.Materialize().Data().([]float64)

	h, w := p.OutputShape()
	if !ok || len(cropped) != h*w*p.channels {
		return nil, fmt.Errorf("cropped observation does not have shape "+
			"(%v, %v, %v)", h, w, p.channels)
	}

	out := make([]float64, h*w)
	for i := range out {
		var sum float64
		for _, v := range cropped[i*p.channels : (i+1)*p.channels] {
			if _, isBackground := p.background[v]; !isBackground {
				sum += v
			}
		}
		out[i] = sum / float64(p.channels)
	}

	return out, nil
}

// Image converts a preprocessed frame into a grayscale image. Values are
// clamped to [0, 255].
func Image(frame *tensor.Dense) (*image.Gray, error) {
	shape := frame.Shape()
	if shape.Dims() != 2 {
		return nil, fmt.Errorf("image: frame must have 2 dimensions, got %v",
			shape)
	}
	data, ok := frame.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("image: frame must be of type float64")
	}

	h, w := shape[0], shape[1]
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := math.Min(math.Max(math.Round(data[y*w+x]), 0), 255)
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return img, nil
}
