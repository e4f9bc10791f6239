package tensor

import "fmt"

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, but got %d", ErrShape, shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape)
	if err != nil {
		return nil, err
	}
	copy(raw.buffer.data, data)
	return raw, nil
}

// Scalar creates a 0-D tensor holding value.
func Scalar(value float64) *RawTensor {
	raw := MustNewRaw(Shape{})
	raw.buffer.data[0] = value
	return raw
}

// Full creates a tensor filled with value.
func Full(shape Shape, value float64) (*RawTensor, error) {
	raw, err := NewRaw(shape)
	if err != nil {
		return nil, err
	}
	if value != 0 {
		for i := range raw.buffer.data {
			raw.buffer.data[i] = value
		}
	}
	return raw, nil
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) (*RawTensor, error) {
	return NewRaw(shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) (*RawTensor, error) {
	return Full(shape, 1)
}

// Eye creates an n×n identity matrix.
func Eye(n int) (*RawTensor, error) {
	raw, err := NewRaw(Shape{n, n})
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		raw.buffer.data[i*n+i] = 1
	}
	return raw, nil
}

// Arange creates a 1-D tensor [0, 1, ..., n-1].
func Arange(n int) (*RawTensor, error) {
	raw, err := NewRaw(Shape{n})
	if err != nil {
		return nil, err
	}
	for i := range raw.buffer.data {
		raw.buffer.data[i] = float64(i)
	}
	return raw, nil
}
