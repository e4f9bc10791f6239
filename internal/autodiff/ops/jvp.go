package ops

import (
	"fmt"

	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/tensor"
)

// TangentRule computes the tangent of a primitive's output from its
// primal inputs, their tangents (nil means zero) and the primal output.
// It returns nil when the output tangent is zero.
type TangentRule func(p *dispatch.Primitive, primals, tangents []*dispatch.Tensor, out *dispatch.Tensor, params dispatch.Params) *dispatch.Tensor

var tangentRules = map[*dispatch.Primitive]TangentRule{
	dispatch.Add:         addTangent,
	dispatch.Sub:         subTangent,
	dispatch.Mul:         mulTangent,
	dispatch.Div:         divTangent,
	dispatch.Atan2:       atan2Tangent,
	dispatch.MatMul:      matmulTangent,
	dispatch.Cat:         catTangent,
	dispatch.AddInPlace:  addTangent,
	dispatch.CopyInPlace: copyTangent,
	dispatch.AddScalar:   identityTangent,
	dispatch.Sin: pointwise(func(x, _ *dispatch.Tensor) *dispatch.Tensor {
		return x.Cos()
	}),
	dispatch.Cos: pointwise(func(x, _ *dispatch.Tensor) *dispatch.Tensor {
		return x.Sin().Neg()
	}),
	dispatch.Exp: pointwise(func(_, out *dispatch.Tensor) *dispatch.Tensor {
		return out
	}),
	dispatch.Log: pointwise(func(x, _ *dispatch.Tensor) *dispatch.Tensor {
		return x.PowScalar(-1)
	}),
	dispatch.Tanh: pointwise(func(_, out *dispatch.Tensor) *dispatch.Tensor {
		return out.Square().Neg().AddScalar(1)
	}),
	dispatch.PowScalar: powTangent,
}

func init() {
	// Primitives linear in their only input map the tangent through
	// themselves.
	for _, p := range []*dispatch.Primitive{
		dispatch.Neg, dispatch.Clone, dispatch.MulScalar, dispatch.Sum,
		dispatch.Reshape, dispatch.Permute, dispatch.Expand, dispatch.Unsqueeze, dispatch.Squeeze,
		dispatch.Select, dispatch.Narrow, dispatch.Diagonal, dispatch.DiagEmbed,
	} {
		tangentRules[p] = linearTangent
	}
}

// JVP computes the output tangent of a call of p.
func JVP(p *dispatch.Primitive, primals, tangents []*dispatch.Tensor, out *dispatch.Tensor, params dispatch.Params) (*dispatch.Tensor, error) {
	rule, ok := tangentRules[p]
	if !ok {
		return nil, fmt.Errorf("%w: the forward-mode derivative for '%s' is not implemented",
			dispatch.ErrNoDerivative, p.Name)
	}
	return rule(p, primals, tangents, out, params), nil
}

// fit broadcasts a tangent to shape. nil stays nil.
func fit(t *dispatch.Tensor, shape tensor.Shape) *dispatch.Tensor {
	if t == nil || t.Shape().Equal(shape) {
		return t
	}
	return t.Expand(shape...)
}

// plus adds two optional tangents.
func plus(a, b *dispatch.Tensor) *dispatch.Tensor {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return a.Add(b)
}

func linearTangent(p *dispatch.Primitive, _, tangents []*dispatch.Tensor, _ *dispatch.Tensor, params dispatch.Params) *dispatch.Tensor {
	t := tangents[0]
	if t == nil {
		return nil
	}
	return t.Session().Call(p, []*dispatch.Tensor{t}, params)
}

func identityTangent(_ *dispatch.Primitive, _, tangents []*dispatch.Tensor, _ *dispatch.Tensor, _ dispatch.Params) *dispatch.Tensor {
	return tangents[0]
}

// pointwise builds the rule of a unary function whose derivative is given
// by deriv(x, out).
func pointwise(deriv func(x, out *dispatch.Tensor) *dispatch.Tensor) TangentRule {
	return func(_ *dispatch.Primitive, primals, tangents []*dispatch.Tensor, out *dispatch.Tensor, _ dispatch.Params) *dispatch.Tensor {
		if tangents[0] == nil {
			return nil
		}
		return tangents[0].Mul(deriv(primals[0], out))
	}
}

func powTangent(_ *dispatch.Primitive, primals, tangents []*dispatch.Tensor, _ *dispatch.Tensor, params dispatch.Params) *dispatch.Tensor {
	t := tangents[0]
	if t == nil {
		return nil
	}
	if params.Scalar == 0 {
		return t.MulScalar(0)
	}
	return t.Mul(primals[0].PowScalar(params.Scalar - 1).MulScalar(params.Scalar))
}

// addTangent also serves add_, whose output shape is the destination's.
func addTangent(_ *dispatch.Primitive, _, tangents []*dispatch.Tensor, out *dispatch.Tensor, _ dispatch.Params) *dispatch.Tensor {
	shape := out.Shape()
	return plus(fit(tangents[0], shape), fit(tangents[1], shape))
}

func subTangent(_ *dispatch.Primitive, _, tangents []*dispatch.Tensor, out *dispatch.Tensor, _ dispatch.Params) *dispatch.Tensor {
	shape := out.Shape()
	tb := tangents[1]
	if tb != nil {
		tb = tb.Neg()
	}
	return plus(fit(tangents[0], shape), fit(tb, shape))
}

func copyTangent(_ *dispatch.Primitive, _, tangents []*dispatch.Tensor, out *dispatch.Tensor, _ dispatch.Params) *dispatch.Tensor {
	return fit(tangents[1], out.Shape())
}

func mulTangent(_ *dispatch.Primitive, primals, tangents []*dispatch.Tensor, out *dispatch.Tensor, _ dispatch.Params) *dispatch.Tensor {
	var ta, tb *dispatch.Tensor
	if tangents[0] != nil {
		ta = tangents[0].Mul(primals[1])
	}
	if tangents[1] != nil {
		tb = primals[0].Mul(tangents[1])
	}
	return fit(plus(ta, tb), out.Shape())
}

// divTangent computes (ta - tb * out) / b.
func divTangent(_ *dispatch.Primitive, primals, tangents []*dispatch.Tensor, out *dispatch.Tensor, _ dispatch.Params) *dispatch.Tensor {
	b := primals[1]
	var ta, tb *dispatch.Tensor
	if tangents[0] != nil {
		ta = tangents[0].Div(b)
	}
	if tangents[1] != nil {
		tb = tangents[1].Mul(out).Div(b).Neg()
	}
	return fit(plus(ta, tb), out.Shape())
}

// atan2Tangent computes (ty * x - tx * y) / (x² + y²).
func atan2Tangent(_ *dispatch.Primitive, primals, tangents []*dispatch.Tensor, out *dispatch.Tensor, _ dispatch.Params) *dispatch.Tensor {
	y, x := primals[0], primals[1]
	r := x.Square().Add(y.Square())
	var ty, tx *dispatch.Tensor
	if tangents[0] != nil {
		ty = tangents[0].Mul(x).Div(r)
	}
	if tangents[1] != nil {
		tx = tangents[1].Mul(y).Div(r).Neg()
	}
	return fit(plus(ty, tx), out.Shape())
}

func matmulTangent(_ *dispatch.Primitive, primals, tangents []*dispatch.Tensor, out *dispatch.Tensor, _ dispatch.Params) *dispatch.Tensor {
	var ta, tb *dispatch.Tensor
	if tangents[0] != nil {
		ta = tangents[0].MatMul(primals[1])
	}
	if tangents[1] != nil {
		tb = primals[0].MatMul(tangents[1])
	}
	return fit(plus(ta, tb), out.Shape())
}

func catTangent(p *dispatch.Primitive, primals, tangents []*dispatch.Tensor, _ *dispatch.Tensor, params dispatch.Params) *dispatch.Tensor {
	parts := make([]*dispatch.Tensor, len(primals))
	nonZero := false
	for i, x := range primals {
		parts[i] = tangents[i]
		if parts[i] == nil {
			parts[i] = x.Session().ZerosLike(x)
			continue
		}
		nonZero = true
	}
	if !nonZero {
		return nil
	}
	return primals[0].Session().Call(p, parts, params)
}
