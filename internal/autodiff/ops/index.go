package ops

import "github.com/born-ml/xform/internal/dispatch"

// SelectOp represents x.Select(dim, index).
//
// Backward pass: the gradient is placed back at index inside zeros of the
// input shape.
type SelectOp struct {
	unary
	dim   int
	index int
}

// NewSelectOp creates a new SelectOp.
func NewSelectOp(input *dispatch.Tensor, dim, index int) *SelectOp {
	return &SelectOp{unary: unary{input}, dim: dim, index: index}
}

// Backward scatters the output gradient into the selected slot.
func (op *SelectOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	shape := op.input.Shape()
	dim := mustDim(op.dim, len(shape))
	index := op.index
	if index < 0 {
		index += shape[dim]
	}
	return []*dispatch.Tensor{padAlong(outputGrad.Unsqueeze(dim), shape, dim, index)}
}

// NarrowOp represents x.Narrow(dim, start, length).
type NarrowOp struct {
	unary
	dim   int
	start int
}

// NewNarrowOp creates a new NarrowOp.
func NewNarrowOp(input *dispatch.Tensor, dim, start int) *NarrowOp {
	return &NarrowOp{unary: unary{input}, dim: dim, start: start}
}

// Backward pads the output gradient with zeros outside the narrowed range.
func (op *NarrowOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	shape := op.input.Shape()
	dim := mustDim(op.dim, len(shape))
	return []*dispatch.Tensor{padAlong(outputGrad, shape, dim, op.start)}
}
