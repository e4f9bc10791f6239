package ops

import "github.com/born-ml/xform/internal/dispatch"

// CosOp represents the cosine operation: y = cos(x).
//
// Backward pass:
//   - d(cos(x))/dx = -sin(x)
type CosOp struct {
	unary
}

// NewCosOp creates a new CosOp.
func NewCosOp(input *dispatch.Tensor) *CosOp {
	return &CosOp{unary{input}}
}

// Backward computes input gradient for cos.
func (op *CosOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad.Mul(op.input.Sin()).Neg()}
}
