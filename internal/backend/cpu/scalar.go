package cpu

import (
	"math"

	"github.com/born-ml/xform/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// MulScalar multiplies every element by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := x.Clone()
	floats.Scale(scalar, result.Data())
	return result
}

// AddScalar adds scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := x.Clone()
	floats.AddConst(scalar, result.Data())
	return result
}

// PowScalar raises every element to exponent.
func (cpu *CPUBackend) PowScalar(x *tensor.RawTensor, exponent float64) *tensor.RawTensor {
	switch exponent {
	case 1:
		return x.Clone()
	case 2:
		return cpu.unary(x, func(v float64) float64 { return v * v })
	}
	return cpu.unary(x, func(v float64) float64 { return math.Pow(v, exponent) })
}
