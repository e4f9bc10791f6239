package cpu

import (
	"math"

	"github.com/born-ml/xform/internal/parallel"
	"github.com/born-ml/xform/internal/tensor"
)

// unary maps fn over every element of x into a fresh contiguous tensor.
// Large contiguous inputs are split across workers.
func (cpu *CPUBackend) unary(x *tensor.RawTensor, fn func(float64) float64) *tensor.RawTensor {
	result := tensor.MustNewRaw(x.Shape())
	dst := result.Data()
	if x.IsContiguous() {
		src := x.Data()
		parallel.Chunks(len(src), func(start, end int) {
			for i := start; i < end; i++ {
				dst[i] = fn(src[i])
			}
		}, cpu.elementwise)
		return result
	}
	src := x.Storage()
	for i, off := range x.ElementOffsets() {
		dst[i] = fn(src[off])
	}
	return result
}

// Neg computes element-wise negation.
func (cpu *CPUBackend) Neg(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float64) float64 { return -v })
}

// Sin computes element-wise sine.
func (cpu *CPUBackend) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, math.Sin)
}

// Cos computes element-wise cosine.
func (cpu *CPUBackend) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, math.Cos)
}

// Exp computes element-wise exponential: exp(x).
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, math.Exp)
}

// Log computes element-wise natural logarithm: ln(x).
// Non-positive inputs yield -Inf or NaN, as in IEEE arithmetic.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, math.Log)
}

// Tanh computes element-wise hyperbolic tangent.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, math.Tanh)
}

// Atan2 computes element-wise atan2(a, b) with broadcasting.
func (cpu *CPUBackend) Atan2(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("atan2", a, b, math.Atan2, nil)
}
