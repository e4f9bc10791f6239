package ops

import "github.com/born-ml/xform/internal/dispatch"

// Atan2Op represents output = atan2(y, x).
//
// Backward pass, with r = x² + y²:
//   - grad_y = outputGrad * x / r
//   - grad_x = -outputGrad * y / r
type Atan2Op struct {
	binary
}

// NewAtan2Op creates a new Atan2Op.
func NewAtan2Op(y, x *dispatch.Tensor) *Atan2Op {
	return &Atan2Op{binary{[]*dispatch.Tensor{y, x}}}
}

// Backward computes input gradients for atan2.
func (op *Atan2Op) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	y, x := op.inputs[0], op.inputs[1]
	r := x.Square().Add(y.Square())
	gradY := outputGrad.Mul(x).Div(r).SumTo(y.Shape())
	gradX := outputGrad.Mul(y).Div(r).Neg().SumTo(x.Shape())
	return []*dispatch.Tensor{gradY, gradX}
}
