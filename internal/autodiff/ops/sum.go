package ops

import (
	"slices"

	"github.com/born-ml/xform/internal/dispatch"
)

// SumOp represents a reduction over dims (all dims when none are given).
//
// Backward pass: the output gradient is broadcast back over the reduced
// dims, reinserting them first when the reduction dropped them.
type SumOp struct {
	unary
	dims    []int
	keepDim bool
}

// NewSumOp creates a new SumOp.
func NewSumOp(input *dispatch.Tensor, dims []int, keepDim bool) *SumOp {
	return &SumOp{unary: unary{input}, dims: dims, keepDim: keepDim}
}

// Backward expands the output gradient to the input shape.
func (op *SumOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	shape := op.input.Shape()
	rank := len(shape)
	if rank == 0 {
		return []*dispatch.Tensor{outputGrad}
	}

	g := outputGrad
	if !op.keepDim {
		dims := make([]int, 0, rank)
		if len(op.dims) == 0 {
			for d := range rank {
				dims = append(dims, d)
			}
		}
		for _, d := range op.dims {
			dims = append(dims, mustDim(d, rank))
		}
		slices.Sort(dims)
		for _, d := range slices.Compact(dims) {
			g = g.Unsqueeze(d)
		}
	}
	return []*dispatch.Tensor{g.Expand(shape...)}
}
