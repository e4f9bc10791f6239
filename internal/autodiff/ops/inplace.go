package ops

import "github.com/born-ml/xform/internal/dispatch"

// AddInPlaceOp represents dst += src. The destination's previous value
// receives the gradient unchanged.
type AddInPlaceOp struct {
	binary
}

// NewAddInPlaceOp creates a new AddInPlaceOp.
func NewAddInPlaceOp(dst, src *dispatch.Tensor) *AddInPlaceOp {
	return &AddInPlaceOp{binary{[]*dispatch.Tensor{dst, src}}}
}

// Backward computes gradients for the previous destination and the source.
func (op *AddInPlaceOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad, outputGrad.SumTo(op.inputs[1].Shape())}
}

// CopyInPlaceOp represents dst.copy_(src). The destination's previous value
// is overwritten and receives no gradient.
type CopyInPlaceOp struct {
	binary
}

// NewCopyInPlaceOp creates a new CopyInPlaceOp.
func NewCopyInPlaceOp(dst, src *dispatch.Tensor) *CopyInPlaceOp {
	return &CopyInPlaceOp{binary{[]*dispatch.Tensor{dst, src}}}
}

// Backward routes the gradient to the source.
func (op *CopyInPlaceOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{nil, outputGrad.SumTo(op.inputs[1].Shape())}
}
