package transforms

import (
	"github.com/samber/lo"

	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
	"github.com/born-ml/xform/internal/tensor"
)

const (
	jacrevAPI = "jacrev(f, ...)(*args)"
	jacfwdAPI = "jacfwd(f, ...)(*args)"
)

// JacRev computes the Jacobian of f with respect to the arguments selected
// by Argnums using reverse mode: one VJP, vmapped over the rows of an
// identity matrix sized to the flattened output.
//
// The result has the output's pytree structure on the outside. Each output
// leaf holds the argnums structure on the inside: one block per input leaf,
// of shape output_shape + input_shape. With HasAux the result is
// (jacobian, aux).
func JacRev(f Func, opts ...Option) Func {
	return func(s *dispatch.Session, args ...any) (result any, err error) {
		defer dispatch.Recover(&err)
		o := newOptions(s, opts)
		nums, tuple, err := normalizeArgnums(o.argnums, len(args))
		if err != nil {
			return nil, err
		}
		g := func(s *dispatch.Session, diff ...any) (any, error) {
			return f(s, replaceArgs(args, nums, diff)...)
		}

		out, vjpFn, aux, err := vjp(s, jacrevAPI, g, selectArgs(args, nums), o.hasAux)
		if err != nil {
			return nil, err
		}
		outs, outSpec, err := tensorLeaves(out, jacrevAPI)
		if err != nil {
			return nil, err
		}
		sizes := lo.Map(outs, func(y *dispatch.Tensor, _ int) int { return y.NumElements() })

		rows, err := VMap(func(s *dispatch.Session, rowArgs ...any) (any, error) {
			cts := split(rowArgs[0].(*dispatch.Tensor), 0, sizes, lo.Map(outs, shapeOf))
			return vjpFn(s, unflatten(cts, outSpec))
		}, Randomness(o.randomness))(s, s.Eye(lo.Sum(sizes)))
		if err != nil {
			return nil, err
		}

		// Row block i of every gradient belongs to output leaf i.
		perArg := rows.(pytree.Tuple)
		jac := make([]any, len(outs))
		for i, y := range outs {
			offset := lo.Sum(sizes[:i])
			blocks := make([]any, len(perArg))
			for j, arg := range perArg {
				gs, spec, err := tensorLeaves(arg, jacrevAPI)
				if err != nil {
					return nil, err
				}
				for k, grad := range gs {
					inShape := grad.Shape()[1:]
					gs[k] = grad.Narrow(0, offset, sizes[i]).Reshape(concat(y.Shape(), inShape)...)
				}
				blocks[j] = unflatten(gs, spec)
			}
			jac[i] = packArgnums(blocks, tuple)
		}
		result, err = pytree.Unflatten(jac, outSpec)
		if err != nil {
			return nil, err
		}
		if o.hasAux {
			return pytree.Tuple{result, aux}, nil
		}
		return result, nil
	}
}

// JacFwd computes the Jacobian of f using forward mode: one JVP, vmapped
// over the rows of an identity matrix sized to the flattened inputs. The
// result is laid out as JacRev's.
func JacFwd(f Func, opts ...Option) Func {
	return func(s *dispatch.Session, args ...any) (result any, err error) {
		defer dispatch.Recover(&err)
		o := newOptions(s, opts)
		nums, tuple, err := normalizeArgnums(o.argnums, len(args))
		if err != nil {
			return nil, err
		}
		g := func(s *dispatch.Session, diff ...any) (any, error) {
			return f(s, replaceArgs(args, nums, diff)...)
		}
		primals := selectArgs(args, nums)
		ins, inSpec, err := tensorLeaves(primals, jacfwdAPI)
		if err != nil {
			return nil, err
		}
		sizes := lo.Map(ins, func(x *dispatch.Tensor, _ int) int { return x.NumElements() })

		push := func(s *dispatch.Session, rowArgs ...any) (any, error) {
			ts := split(rowArgs[0].(*dispatch.Tensor), 0, sizes, lo.Map(ins, shapeOf))
			_, tangentOut, aux, err := jvp(s, jacfwdAPI, g, primals, unflatten(ts, inSpec), o.hasAux, false)
			if err != nil {
				return nil, err
			}
			if o.hasAux {
				return pytree.Tuple{tangentOut, aux}, nil
			}
			return tangentOut, nil
		}
		var outDims any = -1
		if o.hasAux {
			outDims = pytree.Tuple{-1, nil}
		}
		pushed, err := VMap(push, OutDims(outDims), Randomness(o.randomness))(s, s.Eye(lo.Sum(sizes)))
		if err != nil {
			return nil, err
		}
		tangents, aux, err := splitAux(pushed, o.hasAux, jacfwdAPI)
		if err != nil {
			return nil, err
		}
		outs, outSpec, err := tensorLeaves(tangents, jacfwdAPI)
		if err != nil {
			return nil, err
		}

		// Column block k of every output belongs to input leaf k.
		jac := make([]any, len(outs))
		for i, y := range outs {
			outShape := y.Shape()[:y.Dim()-1]
			blocks := make([]*dispatch.Tensor, len(ins))
			offset := 0
			for k, x := range ins {
				blocks[k] = y.Narrow(-1, offset, sizes[k]).Reshape(concat(outShape, x.Shape())...)
				offset += sizes[k]
			}
			perArg := make([]any, len(inSpec.Children))
			start := 0
			for j, spec := range inSpec.Children {
				perArg[j] = unflatten(blocks[start:start+spec.NumLeaves], spec)
				start += spec.NumLeaves
			}
			jac[i] = packArgnums(perArg, tuple)
		}
		result, err = pytree.Unflatten(jac, outSpec)
		if err != nil {
			return nil, err
		}
		if o.hasAux {
			return pytree.Tuple{result, aux}, nil
		}
		return result, nil
	}
}

// Hessian computes the Hessian of a scalar-valued f as the forward-mode
// Jacobian of its reverse-mode Jacobian.
func Hessian(f Func, opts ...Option) Func {
	return JacFwd(JacRev(f, opts...), opts...)
}

// split cuts the flat vector v (along dim) into consecutive pieces of the
// given sizes reshaped to shapes.
func split(v *dispatch.Tensor, dim int, sizes []int, shapes []tensor.Shape) []*dispatch.Tensor {
	parts := make([]*dispatch.Tensor, len(sizes))
	offset := 0
	for i, n := range sizes {
		parts[i] = v.Narrow(dim, offset, n).Reshape(shapes[i]...)
		offset += n
	}
	return parts
}

func shapeOf(t *dispatch.Tensor, _ int) tensor.Shape {
	return t.Shape()
}

func concat(a, b tensor.Shape) []int {
	out := make([]int, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}
