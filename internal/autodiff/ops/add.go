package ops

import "github.com/born-ml/xform/internal/dispatch"

// AddOp represents element-wise addition: output = a + b.
//
// Backward pass:
//   - grad_a = outputGrad, summed down to a's shape
//   - grad_b = outputGrad, summed down to b's shape
type AddOp struct {
	binary
}

// NewAddOp creates a new AddOp.
func NewAddOp(a, b *dispatch.Tensor) *AddOp {
	return &AddOp{binary{[]*dispatch.Tensor{a, b}}}
}

// Backward computes input gradients for addition.
func (op *AddOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*dispatch.Tensor{outputGrad.SumTo(a.Shape()), outputGrad.SumTo(b.Shape())}
}
