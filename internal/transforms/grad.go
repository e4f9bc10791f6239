package transforms

import (
	"fmt"

	"github.com/born-ml/xform/internal/autodiff"
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
)

// Grad returns the gradient of a scalar-valued f with respect to the
// arguments selected by Argnums (default 0). With HasAux, f returns
// (output, aux) and the transformed function returns (grads, aux).
func Grad(f Func, opts ...Option) Func {
	return func(s *dispatch.Session, args ...any) (any, error) {
		o := newOptions(s, opts)
		grads, _, aux, err := gradAndValue(s, f, o, args)
		if err != nil {
			return nil, err
		}
		if o.hasAux {
			return pytree.Tuple{grads, aux}, nil
		}
		return grads, nil
	}
}

// GradAndValue is Grad that also returns the value of f: (grads, value),
// or (grads, (value, aux)) with HasAux.
func GradAndValue(f Func, opts ...Option) Func {
	return func(s *dispatch.Session, args ...any) (any, error) {
		o := newOptions(s, opts)
		grads, value, aux, err := gradAndValue(s, f, o, args)
		if err != nil {
			return nil, err
		}
		if o.hasAux {
			return pytree.Tuple{grads, pytree.Tuple{value, aux}}, nil
		}
		return pytree.Tuple{grads, value}, nil
	}
}

// diffArg is one argument selected for differentiation.
type diffArg struct {
	leaves []*dispatch.Tensor
	nodes  []*autodiff.Node
	spec   *pytree.TreeSpec
}

func gradAndValue(s *dispatch.Session, f Func, o *options, args []any) (grads, value, aux any, err error) {
	const api = "grad_and_value(f)(*args)"
	nums, tuple, err := normalizeArgnums(o.argnums, len(args))
	if err != nil {
		return nil, nil, nil, err
	}

	r := autodiff.NewReverse()
	l, exit := enter(s, dispatch.Gradient, dispatch.Meta{Mode: dispatch.Reverse, RecordsGrad: true, Interp: r})
	defer exit()
	defer dispatch.Recover(&err)

	selected := selectArgs(args, nums)
	diff := make([]diffArg, len(selected))
	tracked := make([]any, len(selected))
	for i, arg := range selected {
		leaves, spec, err := tensorLeaves(arg, api)
		if err != nil {
			return nil, nil, nil, err
		}
		d := diffArg{leaves: leaves, spec: spec, nodes: make([]*autodiff.Node, len(leaves))}
		wrapped := make([]*dispatch.Tensor, len(leaves))
		for j, x := range leaves {
			wrapped[j] = r.Track(l, x)
			_, d.nodes[j] = autodiff.NodeOf(wrapped[j], l)
		}
		diff[i] = d
		tracked[i] = unflatten(wrapped, spec)
	}

	out, err := call(s, f, replaceArgs(args, nums, tracked))
	if err != nil {
		return nil, nil, nil, err
	}
	out, aux, err = splitAux(out, o.hasAux, api)
	if err != nil {
		return nil, nil, nil, err
	}
	output, ok := out.(*dispatch.Tensor)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s: Expected f(*args) to return a Tensor, got %T",
			dispatch.ErrUnsupportedReturnType, api, out)
	}
	if output.Dim() != 0 {
		return nil, nil, nil, invalid("%s: Expected f(*args) to return a scalar Tensor, got tensor with %d dims. "+
			"Maybe you wanted to use the vjp or jacrev APIs instead?", api, output.Dim())
	}
	if _, _, err := tensorLeaves(aux, api+": aux"); err != nil {
		return nil, nil, nil, err
	}
	outInner, outNode := autodiff.NodeOf(output, l)
	if err := exit(); err != nil {
		return nil, nil, nil, err
	}

	var computed map[*autodiff.Node]*dispatch.Tensor
	if outNode != nil {
		computed = r.Backward(map[*autodiff.Node]*dispatch.Tensor{outNode: s.OnesLike(outInner)})
	}
	results := make([]any, len(diff))
	for i, d := range diff {
		gs := make([]*dispatch.Tensor, len(d.leaves))
		for j, node := range d.nodes {
			if g, ok := computed[node]; ok {
				gs[j] = g
			} else {
				gs[j] = s.ZerosLike(d.leaves[j])
			}
		}
		results[i] = unflatten(gs, d.spec)
	}
	return packArgnums(results, tuple), outInner, aux, nil
}
