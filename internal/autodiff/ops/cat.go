package ops

import "github.com/born-ml/xform/internal/dispatch"

// CatOp represents a concatenation along a dimension.
//
// Backward: the output gradient is split along dim at the input boundaries
// and each input receives the slice it contributed.
type CatOp struct {
	inputs []*dispatch.Tensor
	dim    int
}

// NewCatOp creates a new cat operation.
func NewCatOp(inputs []*dispatch.Tensor, dim int) *CatOp {
	return &CatOp{inputs: inputs, dim: dim}
}

// Inputs returns the concatenated tensors.
func (op *CatOp) Inputs() []*dispatch.Tensor {
	return op.inputs
}

// Backward narrows the output gradient once per input.
func (op *CatOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	dim := mustDim(op.dim, outputGrad.Dim())
	grads := make([]*dispatch.Tensor, len(op.inputs))
	offset := 0
	for i, in := range op.inputs {
		size := in.Shape()[dim]
		grads[i] = outputGrad.Narrow(dim, offset, size)
		offset += size
	}
	return grads
}
