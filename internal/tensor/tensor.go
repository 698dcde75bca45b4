// Package tensor provides the dense float32 tensor the quantization layer
// works with. It is intentionally small: calibration only needs flat access
// to the values plus enough shape information to slice per channel.
package tensor

import (
	"errors"
	"fmt"
)

var errShapeMismatch = errors.New("tensor: data length does not match shape")

// Tensor is a dense row-major float32 tensor.
//
// Tensor does not perform any memory safety beyond the checks performed by
// Go's slice types; out-of-range indices will panic.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// New allocates a zero-initialised tensor with the given shape.
func New(shape ...int) Tensor {
	n := 1
	for _, d := range shape {
		if d < 0 {
			panic("negative dimension for tensor")
		}
		n *= d
	}
	return Tensor{Shape: shape, Data: make([]float32, n)}
}

// FromData wraps existing data in a tensor, checking it matches the shape.
func FromData(data []float32, shape ...int) (Tensor, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return Tensor{}, fmt.Errorf("tensor: negative dimension %d", d)
		}
		n *= d
	}
	if n != len(data) {
		return Tensor{}, errShapeMismatch
	}
	return Tensor{Shape: shape, Data: data}, nil
}

// Len returns the number of elements.
func (t Tensor) Len() int { return len(t.Data) }

// Rank returns the number of dimensions.
func (t Tensor) Rank() int { return len(t.Shape) }

// Dim returns the size of dimension i, or 1 for an out-of-range axis so that
// scalar tensors behave like rank-0 views.
func (t Tensor) Dim(i int) int {
	if i < 0 || i >= len(t.Shape) {
		return 1
	}
	return t.Shape[i]
}

// Clone returns a deep copy of the tensor.
func (t Tensor) Clone() Tensor {
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	shape := make([]int, len(t.Shape))
	copy(shape, t.Shape)
	return Tensor{Shape: shape, Data: data}
}
