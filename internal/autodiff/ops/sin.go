package ops

import "github.com/born-ml/xform/internal/dispatch"

// SinOp represents the sine operation: y = sin(x).
//
// Backward pass:
//   - d(sin(x))/dx = cos(x)
//   - grad_input = grad_output * cos(input)
type SinOp struct {
	unary
}

// NewSinOp creates a new SinOp.
func NewSinOp(input *dispatch.Tensor) *SinOp {
	return &SinOp{unary{input}}
}

// Backward computes input gradient for sin.
func (op *SinOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad.Mul(op.input.Cos())}
}
