package script

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/born-ml/xform/internal/dispatch"
)

// Tensor is the Starlark view of a dispatch.Tensor. Arithmetic operators
// and methods dispatch through the session's level stack like Go code does.
type Tensor struct {
	t *dispatch.Tensor
}

var (
	_ starlark.Value     = (*Tensor)(nil)
	_ starlark.HasBinary = (*Tensor)(nil)
	_ starlark.HasUnary  = (*Tensor)(nil)
	_ starlark.HasAttrs  = (*Tensor)(nil)
)

// NewTensor wraps t.
func NewTensor(t *dispatch.Tensor) *Tensor {
	return &Tensor{t: t}
}

// Unwrap returns the wrapped tensor.
func (x *Tensor) Unwrap() *dispatch.Tensor {
	return x.t
}

func (x *Tensor) String() string       { return x.t.String() }
func (x *Tensor) Type() string         { return "tensor" }
func (x *Tensor) Freeze()              {}
func (x *Tensor) Truth() starlark.Bool { return starlark.True }

func (x *Tensor) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: tensor")
}

// Binary implements + - * / between tensors and between a tensor and a
// number.
func (x *Tensor) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (v starlark.Value, err error) {
	defer dispatch.Recover(&err)

	if c, ok := starlark.AsFloat(y); ok {
		return scalarBinary(op, x.t, c, side), nil
	}
	other, ok := y.(*Tensor)
	if !ok {
		return nil, nil
	}
	a, b := x.t, other.t
	if side == starlark.Right {
		a, b = b, a
	}
	switch op {
	case syntax.PLUS:
		return NewTensor(a.Add(b)), nil
	case syntax.MINUS:
		return NewTensor(a.Sub(b)), nil
	case syntax.STAR:
		return NewTensor(a.Mul(b)), nil
	case syntax.SLASH:
		return NewTensor(a.Div(b)), nil
	}
	return nil, nil
}

// scalarBinary maps tensor-number arithmetic onto the scalar primitives.
// A nil result tells Starlark the operator is unsupported.
func scalarBinary(op syntax.Token, t *dispatch.Tensor, c float64, side starlark.Side) starlark.Value {
	var out *dispatch.Tensor
	switch {
	case op == syntax.PLUS:
		out = t.AddScalar(c)
	case op == syntax.STAR:
		out = t.MulScalar(c)
	case op == syntax.MINUS && side == starlark.Left:
		out = t.AddScalar(-c)
	case op == syntax.MINUS:
		out = t.Neg().AddScalar(c)
	case op == syntax.SLASH && side == starlark.Left:
		out = t.MulScalar(1 / c)
	case op == syntax.SLASH:
		out = t.PowScalar(-1).MulScalar(c)
	default:
		return nil
	}
	return NewTensor(out)
}

func (x *Tensor) Unary(op syntax.Token) (v starlark.Value, err error) {
	defer dispatch.Recover(&err)
	switch op {
	case syntax.MINUS:
		return NewTensor(x.t.Neg()), nil
	case syntax.PLUS:
		return x, nil
	}
	return nil, nil
}

func (x *Tensor) Attr(name string) (starlark.Value, error) {
	switch name {
	case "shape":
		return intTuple(x.t.Shape()), nil
	case "ndim":
		return starlark.MakeInt(x.t.Dim()), nil
	}
	m, ok := methods[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple,
		kwargs []starlark.Tuple) (v starlark.Value, err error) {
		defer dispatch.Recover(&err)
		return m(b.Name(), x.t, args, kwargs)
	}), nil
}

func (x *Tensor) AttrNames() []string {
	names := []string{"ndim", "shape"}
	for name := range methods {
		names = append(names, name)
	}
	return names
}

func intTuple(shape []int) starlark.Tuple {
	out := make(starlark.Tuple, len(shape))
	for i, n := range shape {
		out[i] = starlark.MakeInt(n)
	}
	return out
}
