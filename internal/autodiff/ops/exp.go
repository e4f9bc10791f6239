package ops

import "github.com/born-ml/xform/internal/dispatch"

// ExpOp represents y = exp(x). The output is its own derivative.
type ExpOp struct {
	unary
	output *dispatch.Tensor
}

// NewExpOp creates a new ExpOp.
func NewExpOp(input, output *dispatch.Tensor) *ExpOp {
	return &ExpOp{unary: unary{input}, output: output}
}

// Backward computes grad_output * exp(input).
func (op *ExpOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad.Mul(op.output)}
}
