package ops

import "github.com/born-ml/xform/internal/dispatch"

// TanhOp represents y = tanh(x).
//
// Backward pass:
//   - d(tanh(x))/dx = 1 - tanh²(x), computed from the saved output
type TanhOp struct {
	unary
	output *dispatch.Tensor
}

// NewTanhOp creates a new TanhOp.
func NewTanhOp(input, output *dispatch.Tensor) *TanhOp {
	return &TanhOp{unary: unary{input}, output: output}
}

// Backward computes grad_output * (1 - output²).
func (op *TanhOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad.Mul(op.output.Square().Neg().AddScalar(1))}
}
