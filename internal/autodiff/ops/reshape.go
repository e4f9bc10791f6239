package ops

import "github.com/born-ml/xform/internal/dispatch"

// ReshapeOp covers every primitive that only changes the shape of its
// input: reshape, unsqueeze and squeeze. The gradient is reshaped back.
type ReshapeOp struct {
	unary
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(input *dispatch.Tensor) *ReshapeOp {
	return &ReshapeOp{unary{input}}
}

// Backward reshapes the output gradient to the input shape.
func (op *ReshapeOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad.Reshape(op.input.Shape()...)}
}

// ExpandOp represents broadcasting to a larger shape.
type ExpandOp struct {
	unary
}

// NewExpandOp creates a new ExpandOp.
func NewExpandOp(input *dispatch.Tensor) *ExpandOp {
	return &ExpandOp{unary{input}}
}

// Backward sums the broadcast dims away.
func (op *ExpandOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	return []*dispatch.Tensor{outputGrad.SumTo(op.input.Shape())}
}
