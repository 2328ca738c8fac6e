package trajectory

import "errors"

// Error implements errors unique to a trajectory store
type Error struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

var errEmpty = errors.New("trajectory empty")

var errLengthMismatch = errors.New("trajectory sequences have different " +
	"lengths")

// IsEmpty returns whether or not an error reports that a trajectory is
// empty and so cannot be learned from.
func IsEmpty(err error) bool {
	return errors.Is(err, errEmpty)
}

// IsLengthMismatch returns whether or not an error reports that the
// parallel sequences of a trajectory have different lengths.
func IsLengthMismatch(err error) bool {
	return errors.Is(err, errLengthMismatch)
}
