package ops

import (
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/tensor"
)

// unary holds the single input of an operation.
type unary struct {
	input *dispatch.Tensor
}

// Inputs returns [input].
func (u unary) Inputs() []*dispatch.Tensor {
	return []*dispatch.Tensor{u.input}
}

// binary holds the two inputs of an operation.
type binary struct {
	inputs []*dispatch.Tensor
}

// Inputs returns [a, b].
func (b binary) Inputs() []*dispatch.Tensor {
	return b.inputs
}

// padAlong places g at [start, start+len) of dimension dim of a zero
// tensor of shape full. It is the adjoint of Narrow and of Select (after
// unsqueezing the selected dim).
func padAlong(g *dispatch.Tensor, full tensor.Shape, dim, start int) *dispatch.Tensor {
	s := g.Session()
	length := g.Shape()[dim]
	parts := make([]*dispatch.Tensor, 0, 3)
	if start > 0 {
		shape := full.Clone()
		shape[dim] = start
		parts = append(parts, s.Zeros(shape...))
	}
	parts = append(parts, g)
	if rest := full[dim] - start - length; rest > 0 {
		shape := full.Clone()
		shape[dim] = rest
		parts = append(parts, s.Zeros(shape...))
	}
	if len(parts) == 1 {
		return g
	}
	return s.Cat(parts, dim)
}

func mustDim(dim, rank int) int {
	d, err := tensor.NormalizeDim(dim, rank)
	if err != nil {
		panic(err)
	}
	return d
}
