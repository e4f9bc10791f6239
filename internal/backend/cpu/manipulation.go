package cpu

import (
	"fmt"

	"github.com/born-ml/xform/internal/tensor"
)

// Copy returns a contiguous deep copy of x.
func (cpu *CPUBackend) Copy(x *tensor.RawTensor) *tensor.RawTensor {
	return x.Clone()
}

// Cat concatenates tensors along dim. All shapes must match except at dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic(fmt.Errorf("cat: %w: expected a non-empty list of tensors", tensor.ErrShape))
	}
	first := tensors[0].Shape()
	d, err := tensor.NormalizeDim(dim, len(first))
	if err != nil {
		panic(fmt.Errorf("cat: %w", err))
	}
	if len(first) == 0 {
		panic(fmt.Errorf("cat: %w: zero-dimensional tensor cannot be concatenated", tensor.ErrShape))
	}

	outShape := first.Clone()
	outShape[d] = 0
	for i, t := range tensors {
		s := t.Shape()
		if len(s) != len(first) {
			panic(fmt.Errorf("cat: %w: tensor %d has %d dims, expected %d", tensor.ErrShape, i, len(s), len(first)))
		}
		for j := range s {
			if j != d && s[j] != first[j] {
				panic(fmt.Errorf("cat: %w: sizes of tensors must match except in dimension %d (got %v and %v)",
					tensor.ErrShape, d, first, s))
			}
		}
		outShape[d] += s[d]
	}

	result := tensor.MustNewRaw(outShape)
	start := 0
	for _, t := range tensors {
		size := t.Shape()[d]
		part, err := result.Narrow(d, start, size)
		if err != nil {
			panic(fmt.Errorf("cat: %w", err))
		}
		cpu.CopyInPlace(part, t)
		start += size
	}
	return result
}

// DiagEmbed places the last dimension of x on the diagonal of fresh square
// matrices: [..., N] -> [..., N, N].
func (cpu *CPUBackend) DiagEmbed(x *tensor.RawTensor) *tensor.RawTensor {
	if x.Rank() == 0 {
		panic(fmt.Errorf("diag_embed: %w: expected at least 1 dimension", tensor.ErrShape))
	}
	shape := x.Shape()
	n := shape[len(shape)-1]
	outShape := append(shape.Clone(), n)
	result := tensor.MustNewRaw(outShape)
	dst := result.Data()
	src := x.Values()
	for i, v := range src {
		row, j := i/max(n, 1), i%max(n, 1)
		dst[row*n*n+j*n+j] = v
	}
	return result
}

// writeThrough assigns fn(dst, src) element-wise into dst's storage, with
// src broadcast to dst's shape.
func writeThrough(name string, dst, src *tensor.RawTensor, fn func(d, s float64) float64) {
	es, err := src.Expand(dst.Shape())
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	if !es.Shape().Equal(dst.Shape()) {
		panic(fmt.Errorf("%s: %w: source %v does not broadcast to destination %v",
			name, tensor.ErrShape, src.Shape(), dst.Shape()))
	}
	values := es.Values()
	storage := dst.Storage()
	for i, off := range dst.ElementOffsets() {
		storage[off] = fn(storage[off], values[i])
	}
}

// AddInPlace computes dst += src through dst's view.
func (cpu *CPUBackend) AddInPlace(dst, src *tensor.RawTensor) {
	writeThrough("add_", dst, src, func(d, s float64) float64 { return d + s })
}

// CopyInPlace copies src into dst through dst's view.
func (cpu *CPUBackend) CopyInPlace(dst, src *tensor.RawTensor) {
	writeThrough("copy_", dst, src, func(_, s float64) float64 { return s })
}
