package tensor

import "fmt"

// Permute returns a view with dimensions reordered by perm.
func (r *RawTensor) Permute(perm ...int) (*RawTensor, error) {
	rank := len(r.shape)
	if len(perm) != rank {
		return nil, fmt.Errorf("%w: permute: number of dims don't match (%d vs %d)", ErrShape, len(perm), rank)
	}
	seen := make([]bool, rank)
	shape := make(Shape, rank)
	stride := make([]int, rank)
	for i, p := range perm {
		d, err := NormalizeDim(p, rank)
		if err != nil {
			return nil, err
		}
		if seen[d] {
			return nil, fmt.Errorf("%w: permute: repeated dim %d", ErrShape, d)
		}
		seen[d] = true
		shape[i] = r.shape[d]
		stride[i] = r.stride[d]
	}
	return r.view(shape, stride, r.offset), nil
}

// Transpose swaps two dimensions (view).
func (r *RawTensor) Transpose(dim0, dim1 int) (*RawTensor, error) {
	rank := len(r.shape)
	d0, err := NormalizeDim(dim0, rank)
	if err != nil {
		return nil, err
	}
	d1, err := NormalizeDim(dim1, rank)
	if err != nil {
		return nil, err
	}
	perm := make([]int, rank)
	for i := range perm {
		perm[i] = i
	}
	perm[d0], perm[d1] = perm[d1], perm[d0]
	return r.Permute(perm...)
}

// Expand broadcasts the tensor to shape using zero strides (view).
// A target dimension of -1 keeps the source size.
func (r *RawTensor) Expand(shape Shape) (*RawTensor, error) {
	rank := len(r.shape)
	if len(shape) < rank {
		return nil, fmt.Errorf("%w: expand: the number of sizes provided (%d) must be greater or equal to the number of dimensions in the tensor (%d)",
			ErrShape, len(shape), rank)
	}
	lead := len(shape) - rank
	outShape := make(Shape, len(shape))
	stride := make([]int, len(shape))
	for i, size := range shape {
		if i < lead {
			if size < 0 {
				return nil, fmt.Errorf("%w: expand: -1 is not allowed in a leading, non-existing dimension", ErrShape)
			}
			outShape[i] = size
			stride[i] = 0
			continue
		}
		src := r.shape[i-lead]
		switch {
		case size == -1 || size == src:
			outShape[i] = src
			stride[i] = r.stride[i-lead]
		case src == 1:
			outShape[i] = size
			stride[i] = 0
		default:
			return nil, fmt.Errorf("%w: expand: size %d at dim %d does not match %d", ErrShape, size, i, src)
		}
	}
	return r.view(outShape, stride, r.offset), nil
}

// Unsqueeze inserts a dimension of size 1 at dim (view).
func (r *RawTensor) Unsqueeze(dim int) (*RawTensor, error) {
	rank := len(r.shape)
	d, err := NormalizeDim(dim, rank+1)
	if err != nil {
		return nil, err
	}
	shape := make(Shape, 0, rank+1)
	stride := make([]int, 0, rank+1)
	shape = append(shape, r.shape[:d]...)
	stride = append(stride, r.stride[:d]...)
	inner := 1
	if d < rank {
		inner = r.stride[d] * r.shape[d]
	}
	shape = append(shape, 1)
	stride = append(stride, inner)
	shape = append(shape, r.shape[d:]...)
	stride = append(stride, r.stride[d:]...)
	return r.view(shape, stride, r.offset), nil
}

// Squeeze removes dimension dim if its size is 1 (view).
// A dimension of any other size is left untouched.
func (r *RawTensor) Squeeze(dim int) (*RawTensor, error) {
	rank := len(r.shape)
	d, err := NormalizeDim(dim, rank)
	if err != nil {
		return nil, err
	}
	if rank == 0 || r.shape[d] != 1 {
		return r.view(r.shape.Clone(), append([]int(nil), r.stride...), r.offset), nil
	}
	shape := append(r.shape[:d:d].Clone(), r.shape[d+1:]...)
	stride := append(append([]int(nil), r.stride[:d]...), r.stride[d+1:]...)
	return r.view(shape, stride, r.offset), nil
}

// Select indexes dimension dim at index, removing that dimension (view).
func (r *RawTensor) Select(dim, index int) (*RawTensor, error) {
	rank := len(r.shape)
	if rank == 0 {
		return nil, fmt.Errorf("%w: select() cannot be applied to a 0-dim tensor", ErrDimOutOfRange)
	}
	d, err := NormalizeDim(dim, rank)
	if err != nil {
		return nil, err
	}
	size := r.shape[d]
	if index < -size || index >= size {
		return nil, fmt.Errorf("%w: select(): index %d out of range for tensor of size %v at dimension %d",
			ErrIndex, index, r.shape, d)
	}
	if index < 0 {
		index += size
	}
	shape := append(r.shape[:d:d].Clone(), r.shape[d+1:]...)
	stride := append(append([]int(nil), r.stride[:d]...), r.stride[d+1:]...)
	return r.view(shape, stride, r.offset+index*r.stride[d]), nil
}

// Narrow returns the slice [start, start+length) along dim (view).
func (r *RawTensor) Narrow(dim, start, length int) (*RawTensor, error) {
	rank := len(r.shape)
	d, err := NormalizeDim(dim, rank)
	if err != nil {
		return nil, err
	}
	size := r.shape[d]
	if start < 0 {
		start += size
	}
	if start < 0 || length < 0 || start+length > size {
		return nil, fmt.Errorf("%w: narrow(): start (%d) + length (%d) exceeds dimension size (%d)",
			ErrIndex, start, length, size)
	}
	shape := r.shape.Clone()
	shape[d] = length
	return r.view(shape, append([]int(nil), r.stride...), r.offset+start*r.stride[d]), nil
}

// Diagonal returns the main diagonal of a 2-D tensor (view).
func (r *RawTensor) Diagonal() (*RawTensor, error) {
	if len(r.shape) != 2 {
		return nil, fmt.Errorf("%w: diagonal expects a 2-D tensor, got %d dims", ErrShape, len(r.shape))
	}
	n := min(r.shape[0], r.shape[1])
	return r.view(Shape{n}, []int{r.stride[0] + r.stride[1]}, r.offset), nil
}

// Reshape returns a tensor with the same elements and a new shape.
// A single -1 entry is inferred. The result is a view when r is contiguous,
// otherwise a copy.
func (r *RawTensor) Reshape(shape Shape) (*RawTensor, error) {
	resolved, err := InferShape(shape, r.NumElements())
	if err != nil {
		return nil, err
	}
	src := r.Contiguous()
	return src.view(resolved, resolved.ComputeStrides(), src.offset), nil
}

// InferShape resolves a single -1 entry against numElements and checks the
// element count.
func InferShape(shape Shape, numElements int) (Shape, error) {
	out := shape.Clone()
	infer := -1
	known := 1
	for i, dim := range out {
		switch {
		case dim == -1:
			if infer >= 0 {
				return nil, fmt.Errorf("%w: only one dimension can be inferred", ErrShape)
			}
			infer = i
		case dim < 0:
			return nil, fmt.Errorf("%w: invalid shape dimension %d", ErrShape, dim)
		default:
			known *= dim
		}
	}
	if infer >= 0 {
		if known == 0 || numElements%known != 0 {
			return nil, fmt.Errorf("%w: shape %v is invalid for input of size %d", ErrShape, shape, numElements)
		}
		out[infer] = numElements / known
	}
	if out.NumElements() != numElements {
		return nil, fmt.Errorf("%w: shape %v is invalid for input of size %d", ErrShape, shape, numElements)
	}
	return out, nil
}
