package ops

import "github.com/born-ml/xform/internal/dispatch"

// DivOp represents element-wise division: output = a / b.
//
// Backward pass:
//   - grad_a = outputGrad / b
//   - grad_b = -outputGrad * a / b² = -outputGrad * output / b
type DivOp struct {
	binary
	output *dispatch.Tensor
}

// NewDivOp creates a new DivOp.
func NewDivOp(a, b, output *dispatch.Tensor) *DivOp {
	return &DivOp{binary: binary{[]*dispatch.Tensor{a, b}}, output: output}
}

// Backward computes input gradients for division.
func (op *DivOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := outputGrad.Div(b).SumTo(a.Shape())
	gradB := outputGrad.Mul(op.output).Div(b).Neg().SumTo(b.Shape())
	return []*dispatch.Tensor{gradA, gradB}
}
