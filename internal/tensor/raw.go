package tensor

import (
	"fmt"
	"unsafe"
)

// storage is the shared float64 buffer behind a tensor and all of its views.
type storage struct {
	data []float64
}

// RawTensor is the low-level tensor representation.
//
// Views (Permute, Expand, Select, ...) share the storage of their source and
// only differ in shape, strides and offset. Writes through one view are
// visible through every other view of the same storage.
type RawTensor struct {
	buffer *storage // Shared buffer
	shape  Shape    // Tensor dimensions
	stride []int    // Memory strides (row-major for fresh tensors, 0 for broadcast dims)
	offset int      // Offset for slicing/views
}

// NewRaw creates a new contiguous RawTensor with the given shape.
// Memory is allocated and zero-initialized.
func NewRaw(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		buffer: &storage{data: make([]float64, shape.NumElements())},
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		offset: 0,
	}, nil
}

// MustNewRaw is NewRaw for shapes already known to be valid.
func MustNewRaw(shape Shape) *RawTensor {
	r, err := NewRaw(shape)
	if err != nil {
		panic(err)
	}
	return r
}

// view builds a tensor sharing r's storage.
func (r *RawTensor) view(shape Shape, stride []int, offset int) *RawTensor {
	return &RawTensor{
		buffer: r.buffer,
		shape:  shape,
		stride: stride,
		offset: offset,
	}
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// Offset returns the storage offset of the first element.
func (r *RawTensor) Offset() int {
	return r.offset
}

// Rank returns the number of dimensions.
func (r *RawTensor) Rank() int {
	return len(r.shape)
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// IsContiguous reports whether the elements are laid out row-major without gaps.
func (r *RawTensor) IsContiguous() bool {
	expected := 1
	for i := len(r.shape) - 1; i >= 0; i-- {
		if r.shape[i] == 1 {
			continue
		}
		if r.stride[i] != expected {
			return false
		}
		expected *= r.shape[i]
	}
	return true
}

// Storage returns the whole shared buffer. Kernels pair it with ElementOffsets
// or, for contiguous tensors, with Offset.
//
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Storage() []float64 {
	return r.buffer.data
}

// Data returns the contiguous element slice of a contiguous tensor.
// Panics if the tensor is not contiguous; call Contiguous first.
func (r *RawTensor) Data() []float64 {
	if !r.IsContiguous() {
		panic(fmt.Errorf("%w: Data() on a non-contiguous tensor", ErrShape))
	}
	return r.buffer.data[r.offset : r.offset+r.NumElements()]
}

// SameStorage reports whether two tensors alias the same buffer.
func (r *RawTensor) SameStorage(other *RawTensor) bool {
	return r.buffer == other.buffer
}

// DataPtr returns the address of the first element, matching the notion of
// a data pointer used to check view aliasing in tests.
func (r *RawTensor) DataPtr() uintptr {
	if len(r.buffer.data) == 0 {
		return 0
	}
	//nolint:gosec // address identity only, never dereferenced
	return uintptr(unsafe.Pointer(&r.buffer.data[r.offset]))
}

// ElementOffsets returns the storage offset of every element in row-major
// logical order.
func (r *RawTensor) ElementOffsets() []int {
	n := r.NumElements()
	offsets := make([]int, n)
	if n == 0 {
		return offsets
	}
	rank := len(r.shape)
	index := make([]int, rank)
	cur := r.offset
	for i := 0; i < n; i++ {
		offsets[i] = cur
		for d := rank - 1; d >= 0; d-- {
			index[d]++
			cur += r.stride[d]
			if index[d] < r.shape[d] {
				break
			}
			cur -= r.stride[d] * r.shape[d]
			index[d] = 0
		}
	}
	return offsets
}

// Values returns a fresh row-major copy of the elements.
func (r *RawTensor) Values() []float64 {
	if r.IsContiguous() {
		out := make([]float64, r.NumElements())
		copy(out, r.Data())
		return out
	}
	out := make([]float64, r.NumElements())
	data := r.buffer.data
	for i, off := range r.ElementOffsets() {
		out[i] = data[off]
	}
	return out
}

// Contiguous returns r itself when already contiguous, otherwise a compact copy.
func (r *RawTensor) Contiguous() *RawTensor {
	if r.IsContiguous() {
		return r
	}
	return r.Clone()
}

// Clone creates a deep, contiguous copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	out := MustNewRaw(r.shape)
	copy(out.buffer.data, r.Values())
	return out
}

// flatIndex converts indices to a storage offset.
func (r *RawTensor) flatIndex(indices []int) int {
	if len(indices) != len(r.shape) {
		panic(fmt.Errorf("%w: expected %d indices, got %d", ErrIndex, len(r.shape), len(indices)))
	}
	off := r.offset
	for i, idx := range indices {
		if idx < 0 || idx >= r.shape[i] {
			panic(fmt.Errorf("%w: index %d out of bounds for dimension %d (size %d)", ErrIndex, idx, i, r.shape[i]))
		}
		off += idx * r.stride[i]
	}
	return off
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (r *RawTensor) At(indices ...int) float64 {
	return r.buffer.data[r.flatIndex(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (r *RawTensor) Set(value float64, indices ...int) {
	r.buffer.data[r.flatIndex(indices)] = value
}

// Item returns the value of a single-element tensor.
func (r *RawTensor) Item() (float64, error) {
	if r.NumElements() != 1 {
		return 0, fmt.Errorf("%w: a Tensor with %d elements cannot be converted to Scalar", ErrShape, r.NumElements())
	}
	return r.buffer.data[r.offset], nil
}

// String returns a human-readable representation of the tensor.
func (r *RawTensor) String() string {
	return fmt.Sprintf("Tensor%v%v", r.shape, r.Values())
}
