package dispatch

import (
	"fmt"
	"slices"

	"github.com/born-ml/xform/internal/tensor"
)

// Every method below routes through Session.Call, so it is intercepted by
// all active levels. Failures panic with an error value; transform drivers
// recover them into returned errors.

func (t *Tensor) call(p *Primitive, params Params, others ...*Tensor) *Tensor {
	args := append([]*Tensor{t}, others...)
	return t.s.Call(p, args, params)
}

// Add returns t + other with broadcasting.
func (t *Tensor) Add(other *Tensor) *Tensor { return t.call(Add, Params{}, other) }

// Sub returns t - other with broadcasting.
func (t *Tensor) Sub(other *Tensor) *Tensor { return t.call(Sub, Params{}, other) }

// Mul returns t * other with broadcasting.
func (t *Tensor) Mul(other *Tensor) *Tensor { return t.call(Mul, Params{}, other) }

// Div returns t / other with broadcasting.
func (t *Tensor) Div(other *Tensor) *Tensor { return t.call(Div, Params{}, other) }

// Atan2 returns atan2(t, other) element-wise.
func (t *Tensor) Atan2(other *Tensor) *Tensor { return t.call(Atan2, Params{}, other) }

// Neg returns -t.
func (t *Tensor) Neg() *Tensor { return t.call(Neg, Params{}) }

// Sin returns sin(t).
func (t *Tensor) Sin() *Tensor { return t.call(Sin, Params{}) }

// Cos returns cos(t).
func (t *Tensor) Cos() *Tensor { return t.call(Cos, Params{}) }

// Exp returns exp(t).
func (t *Tensor) Exp() *Tensor { return t.call(Exp, Params{}) }

// Log returns the natural logarithm of t.
func (t *Tensor) Log() *Tensor { return t.call(Log, Params{}) }

// Tanh returns tanh(t).
func (t *Tensor) Tanh() *Tensor { return t.call(Tanh, Params{}) }

// Clone returns a copy of t that does not alias it.
func (t *Tensor) Clone() *Tensor { return t.call(Clone, Params{}) }

// MulScalar returns t * c.
func (t *Tensor) MulScalar(c float64) *Tensor { return t.call(MulScalar, Params{Scalar: c}) }

// AddScalar returns t + c.
func (t *Tensor) AddScalar(c float64) *Tensor { return t.call(AddScalar, Params{Scalar: c}) }

// PowScalar returns t ** c.
func (t *Tensor) PowScalar(c float64) *Tensor { return t.call(PowScalar, Params{Scalar: c}) }

// Sum reduces over dims (all dims when none are given) and drops them.
func (t *Tensor) Sum(dims ...int) *Tensor {
	return t.call(Sum, Params{Dims: dims})
}

// SumKeepDim reduces over dims and keeps them as size 1.
func (t *Tensor) SumKeepDim(dims ...int) *Tensor {
	return t.call(Sum, Params{Dims: dims, KeepDim: true})
}

// Reshape returns t with a new shape; one entry may be -1.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	return t.call(Reshape, Params{Shape: tensor.Shape(shape)})
}

// Permute reorders dimensions (view).
func (t *Tensor) Permute(perm ...int) *Tensor {
	return t.call(Permute, Params{Perm: perm})
}

// Expand broadcasts t to shape; -1 keeps a size (view).
func (t *Tensor) Expand(shape ...int) *Tensor {
	return t.call(Expand, Params{Shape: tensor.Shape(shape)})
}

// Unsqueeze inserts a size-1 dimension at dim (view).
func (t *Tensor) Unsqueeze(dim int) *Tensor {
	return t.call(Unsqueeze, Params{Dim: dim})
}

// Squeeze removes dim if it has size 1 (view).
func (t *Tensor) Squeeze(dim int) *Tensor {
	return t.call(Squeeze, Params{Dim: dim})
}

// Select indexes dim at index and removes it (view).
func (t *Tensor) Select(dim, index int) *Tensor {
	return t.call(Select, Params{Dim: dim, Index: index})
}

// Narrow keeps [start, start+length) of dim (view).
func (t *Tensor) Narrow(dim, start, length int) *Tensor {
	return t.call(Narrow, Params{Dim: dim, Start: start, Length: length})
}

// Diagonal returns the main diagonal of a 2-D tensor (view).
func (t *Tensor) Diagonal() *Tensor { return t.call(Diagonal, Params{}) }

// DiagEmbed maps [..., n] to [..., n, n] with t on the diagonals.
func (t *Tensor) DiagEmbed() *Tensor { return t.call(DiagEmbed, Params{}) }

// MatMul multiplies matrices with broadcast batch dims. 1-D operands are
// promoted to matrices and the added dimension is removed from the result.
func (t *Tensor) MatMul(other *Tensor) *Tensor {
	a, b := t, other
	if a.Dim() == 1 {
		a = a.Unsqueeze(0)
	}
	if b.Dim() == 1 {
		b = b.Unsqueeze(-1)
	}
	out := a.call(MatMul, Params{}, b)
	if t.Dim() == 1 {
		out = out.Squeeze(-2)
	}
	if other.Dim() == 1 {
		out = out.Squeeze(-1)
	}
	return out
}

// AddInPlace performs t += other and returns t.
func (t *Tensor) AddInPlace(other *Tensor) *Tensor { return t.call(AddInPlace, Params{}, other) }

// CopyFrom copies other into t and returns t.
func (t *Tensor) CopyFrom(other *Tensor) *Tensor { return t.call(CopyInPlace, Params{}, other) }

// NormalInPlace fills t with standard normal samples and returns t.
func (t *Tensor) NormalInPlace() *Tensor { return t.call(Normal, Params{}) }

// Item returns the value of a single-element tensor.
func (t *Tensor) Item() float64 {
	out := t.call(Item, Params{})
	return out.base().raw.At()
}

// Equal reports whether t and other have equal shapes and elements.
func (t *Tensor) Equal(other *Tensor) bool {
	out := t.call(Equal, Params{}, other)
	return out.base().raw.At() != 0
}

// Composites. These are built from primitives and therefore transform like
// any other user code.

// Transpose swaps two dimensions (view).
func (t *Tensor) Transpose(dim0, dim1 int) *Tensor {
	rank := t.Dim()
	d0 := mustDim(dim0, rank)
	d1 := mustDim(dim1, rank)
	perm := identityPerm(rank)
	perm[d0], perm[d1] = perm[d1], perm[d0]
	return t.Permute(perm...)
}

// MoveDim moves dimension src to position dst (view).
func (t *Tensor) MoveDim(src, dst int) *Tensor {
	rank := t.Dim()
	s := mustDim(src, rank)
	d := mustDim(dst, rank)
	if s == d {
		return t
	}
	perm := slices.Delete(identityPerm(rank), s, s+1)
	perm = slices.Insert(perm, d, s)
	return t.Permute(perm...)
}

// SumTo sums t down to shape, undoing NumPy broadcasting.
func (t *Tensor) SumTo(shape tensor.Shape) *Tensor {
	cur := t.Shape()
	if cur.Equal(shape) {
		return t
	}
	lead := len(cur) - len(shape)
	if lead < 0 {
		panic(fmt.Errorf("%w: cannot sum shape %v to %v", tensor.ErrShape, cur, shape))
	}
	var dims []int
	for i := range cur {
		if i < lead || (shape[i-lead] == 1 && cur[i] != 1) {
			dims = append(dims, i)
		}
	}
	out := t
	if len(dims) > 0 {
		out = t.SumKeepDim(dims...)
	}
	return out.Reshape(shape...)
}

// Mean averages over dims (all dims when none are given).
func (t *Tensor) Mean(dims ...int) *Tensor {
	shape := t.Shape()
	n := shape.NumElements()
	if len(dims) > 0 {
		n = 1
		for _, d := range dims {
			n *= shape[mustDim(d, len(shape))]
		}
	}
	return t.Sum(dims...).MulScalar(1 / float64(n))
}

// Square returns t * t.
func (t *Tensor) Square() *Tensor { return t.Mul(t) }

func identityPerm(rank int) []int {
	perm := make([]int, rank)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

func mustDim(dim, rank int) int {
	d, err := tensor.NormalizeDim(dim, rank)
	if err != nil {
		panic(err)
	}
	return d
}
