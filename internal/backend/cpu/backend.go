// Package cpu implements the host kernels on strided float64 tensors.
//
// Contiguous same-shape operands take gonum's vectorised paths; everything
// else goes through stride-aware element offsets with NumPy broadcasting.
package cpu

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/xform/internal/parallel"
	"github.com/born-ml/xform/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// CPUBackend implements tensor.Backend on the CPU.
type CPUBackend struct {
	src rand.Source

	elementwise parallel.Config // elementwise kernels over contiguous data
	batches     parallel.Config // matmul batch blocks
}

// New creates a new CPU backend seeded with a fixed default seed.
func New() *CPUBackend {
	return NewWithSeed(0)
}

// NewWithSeed creates a CPU backend whose random kernels draw from a PCG
// source seeded with seed.
func NewWithSeed(seed uint64) *CPUBackend {
	return &CPUBackend{
		src:         rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		elementwise: parallel.DefaultConfig().WithMinChunk(1 << 14),
		batches:     parallel.DefaultConfig().WithMinChunk(4),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// binary applies fn element-wise with broadcasting. fast, when non-nil, is
// used for contiguous operands of identical shape.
func binary(name string, a, b *tensor.RawTensor, fn func(x, y float64) float64, fast func(dst, s, t []float64) []float64) *tensor.RawTensor {
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	result := tensor.MustNewRaw(outShape)
	dst := result.Data()

	if fast != nil && a.Shape().Equal(b.Shape()) && a.IsContiguous() && b.IsContiguous() {
		fast(dst, a.Data(), b.Data())
		return result
	}

	ea, err := a.Expand(outShape)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	eb, err := b.Expand(outShape)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	sa, sb := a.Storage(), b.Storage()
	oa, ob := ea.ElementOffsets(), eb.ElementOffsets()
	for i := range dst {
		dst[i] = fn(sa[oa[i]], sb[ob[i]])
	}
	return result
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("add", a, b, func(x, y float64) float64 { return x + y }, floats.AddTo)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("sub", a, b, func(x, y float64) float64 { return x - y }, floats.SubTo)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("mul", a, b, func(x, y float64) float64 { return x * y }, floats.MulTo)
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("div", a, b, func(x, y float64) float64 { return x / y }, floats.DivTo)
}

// Equal reports whether a and b have the same shape and elements.
func (cpu *CPUBackend) Equal(a, b *tensor.RawTensor) bool {
	if !a.Shape().Equal(b.Shape()) {
		return false
	}
	return floats.Equal(a.Values(), b.Values())
}
