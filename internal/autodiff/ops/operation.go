// Package ops defines the reverse-mode operations recorded on a gradient
// tape, one per differentiable primitive, and the forward-mode tangent rules.
//
// Operations keep the values they need from the forward pass. Backward
// computes input gradients with ordinary dispatched tensor calls, so the
// backward pass of one level is itself recorded by any enclosing level and
// higher derivatives fall out of nesting.
//
// Supported operations:
//   - AddOp, SubOp, MulOp, DivOp, Atan2Op: broadcasting binary arithmetic
//   - SinOp, CosOp, ExpOp, LogOp, TanhOp and the scalar operations
//   - SumOp, MatMulOp
//   - ReshapeOp, PermuteOp, ExpandOp, SelectOp, NarrowOp, CatOp,
//     DiagonalOp, DiagEmbedOp
//   - AddInPlaceOp, CopyInPlaceOp
package ops

import (
	"fmt"

	"github.com/born-ml/xform/internal/dispatch"
)

// Operation represents a differentiable primitive call in the computation
// graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Entries are nil for inputs that receive no gradient.
	Backward(outputGrad *dispatch.Tensor) []*dispatch.Tensor

	// Inputs returns the input values the operation saw.
	Inputs() []*dispatch.Tensor
}

// For builds the operation recording a call of p. inputs are the values
// the primitive ran on and output its result.
func For(p *dispatch.Primitive, inputs []*dispatch.Tensor, output *dispatch.Tensor, params dispatch.Params) (Operation, error) {
	switch p {
	case dispatch.Add:
		return NewAddOp(inputs[0], inputs[1]), nil
	case dispatch.Sub:
		return NewSubOp(inputs[0], inputs[1]), nil
	case dispatch.Mul:
		return NewMulOp(inputs[0], inputs[1]), nil
	case dispatch.Div:
		return NewDivOp(inputs[0], inputs[1], output), nil
	case dispatch.Atan2:
		return NewAtan2Op(inputs[0], inputs[1]), nil
	case dispatch.Neg:
		return NewNegOp(inputs[0]), nil
	case dispatch.Clone:
		return NewCloneOp(inputs[0]), nil
	case dispatch.Sin:
		return NewSinOp(inputs[0]), nil
	case dispatch.Cos:
		return NewCosOp(inputs[0]), nil
	case dispatch.Exp:
		return NewExpOp(inputs[0], output), nil
	case dispatch.Log:
		return NewLogOp(inputs[0]), nil
	case dispatch.Tanh:
		return NewTanhOp(inputs[0], output), nil
	case dispatch.MulScalar:
		return NewMulScalarOp(inputs[0], params.Scalar), nil
	case dispatch.AddScalar:
		return NewAddScalarOp(inputs[0]), nil
	case dispatch.PowScalar:
		return NewPowScalarOp(inputs[0], params.Scalar), nil
	case dispatch.Sum:
		return NewSumOp(inputs[0], params.Dims, params.KeepDim), nil
	case dispatch.MatMul:
		return NewMatMulOp(inputs[0], inputs[1]), nil
	case dispatch.Reshape, dispatch.Unsqueeze, dispatch.Squeeze:
		return NewReshapeOp(inputs[0]), nil
	case dispatch.Permute:
		return NewPermuteOp(inputs[0], params.Perm), nil
	case dispatch.Expand:
		return NewExpandOp(inputs[0]), nil
	case dispatch.Select:
		return NewSelectOp(inputs[0], params.Dim, params.Index), nil
	case dispatch.Narrow:
		return NewNarrowOp(inputs[0], params.Dim, params.Start), nil
	case dispatch.Cat:
		return NewCatOp(inputs, params.Dim), nil
	case dispatch.Diagonal:
		return NewDiagonalOp(inputs[0]), nil
	case dispatch.DiagEmbed:
		return NewDiagEmbedOp(inputs[0]), nil
	case dispatch.AddInPlace:
		return NewAddInPlaceOp(inputs[0], inputs[1]), nil
	case dispatch.CopyInPlace:
		return NewCopyInPlaceOp(inputs[0], inputs[1]), nil
	}
	return nil, fmt.Errorf("%w: the derivative for '%s' is not implemented", dispatch.ErrNoDerivative, p.Name)
}
