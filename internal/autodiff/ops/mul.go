package ops

import "github.com/born-ml/xform/internal/dispatch"

// MulOp represents element-wise multiplication: output = a * b.
//
// Backward pass:
//   - d(a*b)/da = b, so grad_a = outputGrad * b
//   - d(a*b)/db = a, so grad_b = outputGrad * a
type MulOp struct {
	binary
}

// NewMulOp creates a new MulOp.
func NewMulOp(a, b *dispatch.Tensor) *MulOp {
	return &MulOp{binary{[]*dispatch.Tensor{a, b}}}
}

// Backward computes input gradients for multiplication.
func (op *MulOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := outputGrad.Mul(b).SumTo(a.Shape())
	gradB := outputGrad.Mul(a).SumTo(b.Shape())
	return []*dispatch.Tensor{gradA, gradB}
}
