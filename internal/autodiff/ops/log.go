package ops

import "github.com/born-ml/xform/internal/dispatch"

// LogOp represents y = log(x).
//
// Backward pass:
//   - d(log(x))/dx = 1/x
type LogOp struct {
	unary
}

// NewLogOp creates a new LogOp.
func NewLogOp(input *dispatch.Tensor) *LogOp {
	return &LogOp{unary{input}}
}

// Backward computes grad_output / input.
func (op *LogOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad.Div(op.input)}
}
