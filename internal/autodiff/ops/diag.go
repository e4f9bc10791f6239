package ops

import "github.com/born-ml/xform/internal/dispatch"

// DiagonalOp represents the main diagonal of an [m, n] matrix.
//
// Backward pass: the gradient is embedded on the diagonal of a k×k matrix,
// k = min(m, n), and zero padded to [m, n].
type DiagonalOp struct {
	unary
}

// NewDiagonalOp creates a new DiagonalOp.
func NewDiagonalOp(input *dispatch.Tensor) *DiagonalOp {
	return &DiagonalOp{unary{input}}
}

// Backward embeds the output gradient on the diagonal.
func (op *DiagonalOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	shape := op.input.Shape()
	g := outputGrad.DiagEmbed()
	k := outputGrad.Shape()[0]
	g = padAlong(g, []int{shape[0], k}, 0, 0)
	g = padAlong(g, shape, 1, 0)
	return []*dispatch.Tensor{g}
}

// DiagEmbedOp represents [..., n] -> [..., n, n] with the input on the
// diagonals.
//
// Backward pass: the diagonals of the output gradient, (g * I).Sum(-1).
type DiagEmbedOp struct {
	unary
}

// NewDiagEmbedOp creates a new DiagEmbedOp.
func NewDiagEmbedOp(input *dispatch.Tensor) *DiagEmbedOp {
	return &DiagEmbedOp{unary{input}}
}

// Backward extracts the diagonals of the output gradient.
func (op *DiagEmbedOp) Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor {
	shape := op.input.Shape()
	n := shape[len(shape)-1]
	eye := outputGrad.Session().Eye(n)
	return []*dispatch.Tensor{outputGrad.Mul(eye).Sum(-1)}
}
