package dispatch

import (
	"fmt"

	"github.com/born-ml/xform/internal/tensor"
)

// Params carries the non-tensor arguments of a primitive call. Each
// primitive reads only the fields it documents.
type Params struct {
	Dims    []int        // sum
	KeepDim bool         // sum
	Shape   tensor.Shape // reshape, expand, full, rand, randn
	Perm    []int        // permute
	Dim     int          // unsqueeze, squeeze, select, narrow, cat
	Index   int          // select
	Start   int          // narrow
	Length  int          // narrow
	Scalar  float64      // mul_scalar, add_scalar, pow_scalar, full
}

// Kernel executes a primitive on unwrapped values.
type Kernel func(b tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor

// Primitive is one entry of the operation catalog every transform
// intercepts.
type Primitive struct {
	Name string
	Impl Kernel

	View         bool // result aliases its first argument
	InPlace      bool // mutates its first argument and returns it
	Random       bool // draws from the backend's generator
	ScalarResult bool // result is a Go value, not a tensor
}

func (p *Primitive) String() string {
	return p.Name
}

func must(r *tensor.RawTensor, err error) *tensor.RawTensor {
	if err != nil {
		panic(err)
	}
	return r
}

func binaryKernel(fn func(b tensor.Backend, x, y *tensor.RawTensor) *tensor.RawTensor) Kernel {
	return func(b tensor.Backend, args []*tensor.RawTensor, _ Params) *tensor.RawTensor {
		return fn(b, args[0], args[1])
	}
}

func unaryKernel(fn func(b tensor.Backend, x *tensor.RawTensor) *tensor.RawTensor) Kernel {
	return func(b tensor.Backend, args []*tensor.RawTensor, _ Params) *tensor.RawTensor {
		return fn(b, args[0])
	}
}

// Element-wise primitives.
var (
	Add   = &Primitive{Name: "add", Impl: binaryKernel(tensor.Backend.Add)}
	Sub   = &Primitive{Name: "sub", Impl: binaryKernel(tensor.Backend.Sub)}
	Mul   = &Primitive{Name: "mul", Impl: binaryKernel(tensor.Backend.Mul)}
	Div   = &Primitive{Name: "div", Impl: binaryKernel(tensor.Backend.Div)}
	Atan2 = &Primitive{Name: "atan2", Impl: binaryKernel(tensor.Backend.Atan2)}

	Neg   = &Primitive{Name: "neg", Impl: unaryKernel(tensor.Backend.Neg)}
	Sin   = &Primitive{Name: "sin", Impl: unaryKernel(tensor.Backend.Sin)}
	Cos   = &Primitive{Name: "cos", Impl: unaryKernel(tensor.Backend.Cos)}
	Exp   = &Primitive{Name: "exp", Impl: unaryKernel(tensor.Backend.Exp)}
	Log   = &Primitive{Name: "log", Impl: unaryKernel(tensor.Backend.Log)}
	Tanh  = &Primitive{Name: "tanh", Impl: unaryKernel(tensor.Backend.Tanh)}
	Clone = &Primitive{Name: "clone", Impl: unaryKernel(tensor.Backend.Copy)}

	MulScalar = &Primitive{Name: "mul_scalar", Impl: func(b tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return b.MulScalar(args[0], p.Scalar)
	}}
	AddScalar = &Primitive{Name: "add_scalar", Impl: func(b tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return b.AddScalar(args[0], p.Scalar)
	}}
	PowScalar = &Primitive{Name: "pow_scalar", Impl: func(b tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return b.PowScalar(args[0], p.Scalar)
	}}
)

// Reductions and linear algebra.
var (
	Sum = &Primitive{Name: "sum", Impl: func(b tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return b.Sum(args[0], p.Dims, p.KeepDim)
	}}
	MatMul = &Primitive{Name: "matmul", Impl: func(b tensor.Backend, args []*tensor.RawTensor, _ Params) *tensor.RawTensor {
		return b.MatMul(args[0], args[1])
	}}
	Cat = &Primitive{Name: "cat", Impl: func(b tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return b.Cat(args, p.Dim)
	}}
	DiagEmbed = &Primitive{Name: "diag_embed", Impl: unaryKernel(tensor.Backend.DiagEmbed)}
)

// Shape primitives. Reshape returns a view when its input is contiguous;
// the others always alias their input.
var (
	Reshape = &Primitive{Name: "reshape", Impl: func(_ tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return must(args[0].Reshape(p.Shape))
	}}
	Permute = &Primitive{Name: "permute", View: true, Impl: func(_ tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return must(args[0].Permute(p.Perm...))
	}}
	Expand = &Primitive{Name: "expand", View: true, Impl: func(_ tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return must(args[0].Expand(p.Shape))
	}}
	Unsqueeze = &Primitive{Name: "unsqueeze", View: true, Impl: func(_ tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return must(args[0].Unsqueeze(p.Dim))
	}}
	Squeeze = &Primitive{Name: "squeeze", View: true, Impl: func(_ tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return must(args[0].Squeeze(p.Dim))
	}}
	Select = &Primitive{Name: "select", View: true, Impl: func(_ tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return must(args[0].Select(p.Dim, p.Index))
	}}
	Narrow = &Primitive{Name: "narrow", View: true, Impl: func(_ tensor.Backend, args []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return must(args[0].Narrow(p.Dim, p.Start, p.Length))
	}}
	Diagonal = &Primitive{Name: "diagonal", View: true, Impl: func(_ tensor.Backend, args []*tensor.RawTensor, _ Params) *tensor.RawTensor {
		return must(args[0].Diagonal())
	}}
)

// Creation and random primitives.
var (
	Full = &Primitive{Name: "full", Impl: func(_ tensor.Backend, _ []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return must(tensor.Full(p.Shape, p.Scalar))
	}}
	Rand = &Primitive{Name: "rand", Random: true, Impl: func(b tensor.Backend, _ []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return b.Rand(p.Shape)
	}}
	Randn = &Primitive{Name: "randn", Random: true, Impl: func(b tensor.Backend, _ []*tensor.RawTensor, p Params) *tensor.RawTensor {
		return b.Randn(p.Shape)
	}}
	RandnLike = &Primitive{Name: "randn_like", Random: true, Impl: func(b tensor.Backend, args []*tensor.RawTensor, _ Params) *tensor.RawTensor {
		return b.Randn(args[0].Shape())
	}}
	Normal = &Primitive{Name: "normal_", Random: true, InPlace: true, Impl: func(b tensor.Backend, args []*tensor.RawTensor, _ Params) *tensor.RawTensor {
		b.NormalInPlace(args[0])
		return nil
	}}
)

// In-place primitives.
var (
	AddInPlace = &Primitive{Name: "add_", InPlace: true, Impl: func(b tensor.Backend, args []*tensor.RawTensor, _ Params) *tensor.RawTensor {
		b.AddInPlace(args[0], args[1])
		return nil
	}}
	CopyInPlace = &Primitive{Name: "copy_", InPlace: true, Impl: func(b tensor.Backend, args []*tensor.RawTensor, _ Params) *tensor.RawTensor {
		b.CopyInPlace(args[0], args[1])
		return nil
	}}
)

// Primitives producing Go values. The result is carried as a 0-dim tensor.
var (
	Item = &Primitive{Name: "item", ScalarResult: true, Impl: func(_ tensor.Backend, args []*tensor.RawTensor, _ Params) *tensor.RawTensor {
		v, err := args[0].Item()
		if err != nil {
			panic(err)
		}
		return tensor.Scalar(v)
	}}
	Equal = &Primitive{Name: "equal", ScalarResult: true, Impl: func(b tensor.Backend, args []*tensor.RawTensor, _ Params) *tensor.RawTensor {
		if b.Equal(args[0], args[1]) {
			return tensor.Scalar(1)
		}
		return tensor.Scalar(0)
	}}
)

// Primitives lists the whole catalog.
var Primitives = []*Primitive{
	Add, Sub, Mul, Div, Atan2,
	Neg, Sin, Cos, Exp, Log, Tanh, Clone,
	MulScalar, AddScalar, PowScalar,
	Sum, MatMul, Cat, DiagEmbed,
	Reshape, Permute, Expand, Unsqueeze, Squeeze, Select, Narrow, Diagonal,
	Full, Rand, Randn, RandnLike, Normal,
	AddInPlace, CopyInPlace,
	Item, Equal,
}

// Lookup returns the primitive named name.
func Lookup(name string) (*Primitive, error) {
	for _, p := range Primitives {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown primitive %q", ErrInvalidArgument, name)
}
