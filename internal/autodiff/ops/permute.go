package ops

import "github.com/born-ml/xform/internal/dispatch"

// PermuteOp represents a dimension permutation.
//
// Backward pass: the gradient is permuted by the inverse permutation.
type PermuteOp struct {
	unary
	perm []int
}

// NewPermuteOp creates a new PermuteOp.
func NewPermuteOp(input *dispatch.Tensor, perm []int) *PermuteOp {
	return &PermuteOp{unary: unary{input}, perm: perm}
}

// Backward applies the inverse permutation.
func (op *PermuteOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	inverse := make([]int, len(op.perm))
	for i, d := range op.perm {
		inverse[mustDim(d, len(op.perm))] = i
	}
	return []*dispatch.Tensor{outputGrad.Permute(inverse...)}
}
