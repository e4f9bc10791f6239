package ops

import "github.com/born-ml/xform/internal/dispatch"

// MatMulOp represents batched matrix multiplication: C = A @ B.
//
// Backward pass:
//   - dL/dA = dL/dC @ B^T
//   - dL/dB = A^T @ dL/dC
//
// Both are summed down to their input's shape to undo batch broadcasting.
type MatMulOp struct {
	binary
}

// NewMatMulOp creates a new MatMulOp.
func NewMatMulOp(a, b *dispatch.Tensor) *MatMulOp {
	return &MatMulOp{binary{[]*dispatch.Tensor{a, b}}}
}

// Backward computes input gradients for matrix multiplication.
func (op *MatMulOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := outputGrad.MatMul(b.Transpose(-2, -1)).SumTo(a.Shape())
	gradB := a.Transpose(-2, -1).MatMul(outputGrad).SumTo(b.Shape())
	return []*dispatch.Tensor{gradA, gradB}
}
