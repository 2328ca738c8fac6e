// Package tensorutils provides helpers for working with Gorgonia tensors
package tensorutils

import "fmt"

// Slice implements a struct that can be used for slicing tensors.
//
// Given a tensor T and a Slice S, T.Slice(..., S, ...) is equivalent to
// T[..., S.start:S.end:S.step, ...]
type Slice struct {
	start, end, step int
}

// Start returns the start index for the tensor slice
func (s Slice) Start() int {
	return s.start
}

// End returns the ending index for the tensor slice
func (s Slice) End() int {
	return s.end
}

// Step returns the step for the tensor slice
func (s Slice) Step() int {
	return s.step
}

// Len returns the number of indices selected by the slice
func (s Slice) Len() int {
	if s.end <= s.start || s.step <= 0 {
		return 0
	}
	return (s.end - s.start + s.step - 1) / s.step
}

// Validate checks that the slice selects at least one index of a
// dimension of the given size
func (s Slice) Validate(size int) error {
	if s.step <= 0 {
		return fmt.Errorf("validate: step must be positive, got %v", s.step)
	}
	if s.start < 0 || s.end > size || s.start >= s.end {
		return fmt.Errorf("validate: slice [%v:%v] out of range for "+
			"dimension of size %v", s.start, s.end, size)
	}
	return nil
}

// String implements the fmt.Stringer interface
func (s Slice) String() string {
	return fmt.Sprintf("[%v:%v:%v]", s.start, s.end, s.step)
}

// NewSlice returns a new Slice that can be used to slice tensors
func NewSlice(start, stop, step int) Slice {
	return Slice{start, stop, step}
}
