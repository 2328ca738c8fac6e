package tensorutils

import "testing"

func TestSliceLen(t *testing.T) {
	tests := []struct {
		slice Slice
		len   int
	}{
		{NewSlice(8, 192, 2), 92},
		{NewSlice(0, 200, 2), 100},
		{NewSlice(0, 5, 2), 3},
		{NewSlice(3, 3, 1), 0},
		{NewSlice(0, 4, 0), 0},
	}

	for _, test := range tests {
		if got := test.slice.Len(); got != test.len {
			t.Errorf("%v: expected length %v, got %v", test.slice, test.len,
				got)
		}
	}
}

func TestSliceValidate(t *testing.T) {
	if err := NewSlice(8, 192, 2).Validate(200); err != nil {
		t.Error(err)
	}
	for _, s := range []Slice{
		NewSlice(8, 201, 2),
		NewSlice(-1, 10, 1),
		NewSlice(5, 5, 1),
		NewSlice(0, 10, 0),
	} {
		if err := s.Validate(200); err == nil {
			t.Errorf("%v: expected validation error", s)
		}
	}
}
