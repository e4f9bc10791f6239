package ops

import "github.com/born-ml/xform/internal/dispatch"

// SubOp represents element-wise subtraction: output = a - b.
//
// Backward pass:
//   - grad_a = outputGrad
//   - grad_b = -outputGrad
type SubOp struct {
	binary
}

// NewSubOp creates a new SubOp.
func NewSubOp(a, b *dispatch.Tensor) *SubOp {
	return &SubOp{binary{[]*dispatch.Tensor{a, b}}}
}

// Backward computes input gradients for subtraction.
func (op *SubOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*dispatch.Tensor{outputGrad.SumTo(a.Shape()), outputGrad.Neg().SumTo(b.Shape())}
}
