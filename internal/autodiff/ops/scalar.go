package ops

import "github.com/born-ml/xform/internal/dispatch"

// NegOp represents y = -x.
type NegOp struct {
	unary
}

// NewNegOp creates a new NegOp.
func NewNegOp(input *dispatch.Tensor) *NegOp {
	return &NegOp{unary{input}}
}

// Backward negates the output gradient.
func (op *NegOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad.Neg()}
}

// CloneOp represents y = clone(x). The gradient passes through.
type CloneOp struct {
	unary
}

// NewCloneOp creates a new CloneOp.
func NewCloneOp(input *dispatch.Tensor) *CloneOp {
	return &CloneOp{unary{input}}
}

// Backward returns the output gradient.
func (op *CloneOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad}
}

// MulScalarOp represents y = x * c.
type MulScalarOp struct {
	unary
	scalar float64
}

// NewMulScalarOp creates a new MulScalarOp.
func NewMulScalarOp(input *dispatch.Tensor, scalar float64) *MulScalarOp {
	return &MulScalarOp{unary: unary{input}, scalar: scalar}
}

// Backward computes grad_output * c.
func (op *MulScalarOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad.MulScalar(op.scalar)}
}

// AddScalarOp represents y = x + c.
type AddScalarOp struct {
	unary
}

// NewAddScalarOp creates a new AddScalarOp.
func NewAddScalarOp(input *dispatch.Tensor) *AddScalarOp {
	return &AddScalarOp{unary{input}}
}

// Backward returns the output gradient.
func (op *AddScalarOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad}
}

// PowScalarOp represents y = x ** p.
//
// Backward pass:
//   - d(x^p)/dx = p * x^(p-1)
type PowScalarOp struct {
	unary
	exponent float64
}

// NewPowScalarOp creates a new PowScalarOp.
func NewPowScalarOp(input *dispatch.Tensor, exponent float64) *PowScalarOp {
	return &PowScalarOp{unary: unary{input}, exponent: exponent}
}

// Backward computes grad_output * p * input^(p-1).
func (op *PowScalarOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	if op.exponent == 0 {
		// x^-1 would turn zeros into NaN.
		return []*dispatch.Tensor{outputGrad.MulScalar(0)}
	}
	return []*dispatch.Tensor{outputGrad.Mul(op.input.PowScalar(op.exponent - 1).MulScalar(op.exponent))}
}
