package batching

import (
	"fmt"

	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/tensor"
)

// logicalRank is the rank user code sees for x.
func logicalRank(x *dispatch.Tensor, bdim int) int {
	if bdim < 0 {
		return x.Dim()
	}
	return x.Dim() - 1
}

// toFront moves the batch dim of x to position 0.
func toFront(x *dispatch.Tensor, bdim int) *dispatch.Tensor {
	if bdim <= 0 {
		return x
	}
	return x.MoveDim(bdim, 0)
}

// padToRank inserts size-1 dims right after the leading batch dim until x
// has logical rank rank, so that NumPy broadcasting aligns logical dims
// instead of the batch dim.
func padToRank(x *dispatch.Tensor, rank int) *dispatch.Tensor {
	for x.Dim()-1 < rank {
		x = x.Unsqueeze(1)
	}
	return x
}

// alignBatched moves every batch dim to the front and pads batched
// operands to the largest logical rank. Unbatched operands are left alone:
// broadcasting already treats the batch dim as a new leading dim for them.
func alignBatched(args []*dispatch.Tensor, bdims []int) []*dispatch.Tensor {
	rank := 0
	for i, a := range args {
		rank = max(rank, logicalRank(a, bdims[i]))
	}
	out := make([]*dispatch.Tensor, len(args))
	for i, a := range args {
		if bdims[i] < 0 {
			out[i] = a
			continue
		}
		out[i] = padToRank(toFront(a, bdims[i]), rank)
	}
	return out
}

// shiftDim normalizes a logical dim and maps it past the front batch dim.
func shiftDim(dim, rank int) int {
	d, err := tensor.NormalizeDim(dim, rank)
	if err != nil {
		panic(err)
	}
	return d + 1
}

func binaryRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	return c.Forward(alignBatched(args, bdims), p), 0
}

// unaryRule covers element-wise primitives of one tensor: the batch dim
// stays where it is.
func unaryRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	return c.Forward(args[:1], p), bdims[0]
}

func sumRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	x := toFront(args[0], bdims[0])
	rank := x.Dim() - 1
	if rank == 0 {
		for _, d := range p.Dims {
			shiftDim(d, 0)
		}
		return c.Call(dispatch.Clone, []*dispatch.Tensor{x}, dispatch.Params{}), 0
	}
	var dims []int
	if len(p.Dims) == 0 {
		for d := 1; d <= rank; d++ {
			dims = append(dims, d)
		}
	}
	for _, d := range p.Dims {
		dims = append(dims, shiftDim(d, rank))
	}
	return c.Forward([]*dispatch.Tensor{x}, dispatch.Params{Dims: dims, KeepDim: p.KeepDim}), 0
}

func matmulRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	for i, a := range args {
		if r := logicalRank(a, bdims[i]); r < 2 {
			panic(fmt.Errorf("%w: matmul: both arguments need at least 2 dimensions, got %d", tensor.ErrShape, r))
		}
	}
	return c.Forward(alignBatched(args, bdims), p), 0
}

func reshapeRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	x := toFront(args[0], bdims[0])
	logical := x.Shape()[1:]
	shape, err := tensor.InferShape(p.Shape, logical.NumElements())
	if err != nil {
		panic(err)
	}
	batchedShape := append(tensor.Shape{c.BatchSize()}, shape...)
	return c.Forward([]*dispatch.Tensor{x}, dispatch.Params{Shape: batchedShape}), 0
}

func permuteRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	x := toFront(args[0], bdims[0])
	rank := x.Dim() - 1
	if len(p.Perm) != rank {
		panic(fmt.Errorf("%w: permute: number of dims don't match (input.dim() = %d, len(dims) = %d)",
			tensor.ErrShape, rank, len(p.Perm)))
	}
	perm := make([]int, 0, rank+1)
	perm = append(perm, 0)
	for _, d := range p.Perm {
		perm = append(perm, shiftDim(d, rank))
	}
	return c.Forward([]*dispatch.Tensor{x}, dispatch.Params{Perm: perm}), 0
}

func expandRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	x := toFront(args[0], bdims[0])
	rank := x.Dim() - 1
	n := len(p.Shape)
	if n < rank {
		panic(fmt.Errorf("%w: expand: the number of sizes provided (%d) must be greater or equal to the number of dimensions in the tensor (%d)",
			tensor.ErrShape, n, rank))
	}
	for _, size := range p.Shape[:n-rank] {
		if size < 0 {
			panic(fmt.Errorf("%w: expand: -1 is not allowed in a leading, non-existing dimension", tensor.ErrShape))
		}
	}
	x = padToRank(x, n)
	shape := append(tensor.Shape{c.BatchSize()}, p.Shape...)
	return c.Forward([]*dispatch.Tensor{x}, dispatch.Params{Shape: shape}), 0
}

func unsqueezeRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	x := toFront(args[0], bdims[0])
	rank := x.Dim() - 1
	return c.Forward([]*dispatch.Tensor{x}, dispatch.Params{Dim: shiftDim(p.Dim, rank+1)}), 0
}

func squeezeRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	x := toFront(args[0], bdims[0])
	rank := x.Dim() - 1
	if rank == 0 {
		shiftDim(p.Dim, 0)
		return x, 0
	}
	return c.Forward([]*dispatch.Tensor{x}, dispatch.Params{Dim: shiftDim(p.Dim, rank)}), 0
}

func selectRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	x := toFront(args[0], bdims[0])
	rank := x.Dim() - 1
	if rank == 0 {
		panic(fmt.Errorf("%w: select() cannot be applied to a 0-dim tensor", tensor.ErrDimOutOfRange))
	}
	params := dispatch.Params{Dim: shiftDim(p.Dim, rank), Index: p.Index}
	return c.Forward([]*dispatch.Tensor{x}, params), 0
}

func narrowRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	x := toFront(args[0], bdims[0])
	rank := x.Dim() - 1
	if rank == 0 {
		panic(fmt.Errorf("%w: narrow() cannot be applied to a 0-dim tensor", tensor.ErrDimOutOfRange))
	}
	params := dispatch.Params{Dim: shiftDim(p.Dim, rank), Start: p.Start, Length: p.Length}
	return c.Forward([]*dispatch.Tensor{x}, params), 0
}

// catRule expands unbatched operands to the batch size so every operand
// carries the batch dim at the front.
func catRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	rank := -1
	for i, a := range args {
		if bdims[i] >= 0 {
			rank = logicalRank(a, bdims[i])
			break
		}
	}
	if rank == 0 {
		panic(fmt.Errorf("%w: cat: zero-dimensional tensor cannot be concatenated", tensor.ErrShape))
	}
	parts := make([]*dispatch.Tensor, len(args))
	for i, a := range args {
		if bdims[i] >= 0 {
			parts[i] = toFront(a, bdims[i])
			continue
		}
		shape := make([]int, a.Dim()+1)
		for j := range shape {
			shape[j] = -1
		}
		shape[0] = c.BatchSize()
		parts[i] = a.Unsqueeze(0).Expand(shape...)
	}
	return c.Forward(parts, dispatch.Params{Dim: shiftDim(p.Dim, rank)}), 0
}

// inPlaceRule writes through a front-batch view of the destination, so the
// destination's storage receives the result.
func inPlaceRule(c *Context, args []*dispatch.Tensor, bdims []int, p dispatch.Params) (*dispatch.Tensor, int) {
	if bdims[0] < 0 {
		panic(fmt.Errorf("%w: vmap: inplace arithmetic(self, *extra_args) is not possible because there exists a "+
			"Tensor `other` in extra_args that has more elements than `self`. This happened due to `other` being "+
			"vmapped over but `self` not being vmapped over in a vmap. Please try to use out-of-place operators "+
			"instead of %s", dispatch.ErrInPlaceUnbatched, c.Prim.Name))
	}
	dst := toFront(args[0], bdims[0])
	src := args[1]
	if bdims[1] >= 0 {
		src = padToRank(toFront(src, bdims[1]), dst.Dim()-1)
	}
	c.Forward([]*dispatch.Tensor{dst, src}, p)
	return args[0], bdims[0]
}
