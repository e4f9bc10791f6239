package transforms

import (
	"github.com/born-ml/xform/internal/autodiff"
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
)

// VJPFunc maps cotangents shaped like the outputs of f to one gradient per
// primal. It stays valid after VJP returns and may itself be transformed.
type VJPFunc func(s *dispatch.Session, cotangents any) (pytree.Tuple, error)

// VJP evaluates f(primals...) and returns its output together with the
// function computing vector-Jacobian products at primals.
func VJP(s *dispatch.Session, f Func, primals pytree.Tuple) (any, VJPFunc, error) {
	out, fn, _, err := vjp(s, vjpAPI, f, primals, false)
	return out, fn, err
}

// VJPWithAux is VJP for f returning (output, aux). aux is returned as the
// third result and is not differentiated.
func VJPWithAux(s *dispatch.Session, f Func, primals pytree.Tuple) (any, VJPFunc, any, error) {
	return vjp(s, vjpAPI, f, primals, true)
}

const vjpAPI = "vjp(f, *primals)"

// vjp runs f under a reverse level. api names the calling transform in
// error messages.
func vjp(s *dispatch.Session, api string, f Func, primals pytree.Tuple, hasAux bool) (
	output any, fn VJPFunc, aux any, err error,
) {
	r := autodiff.NewReverse()
	l, exit := enter(s, dispatch.Gradient, dispatch.Meta{Mode: dispatch.Reverse, RecordsGrad: true, Interp: r})
	defer exit()
	defer dispatch.Recover(&err)

	leaves, inSpec, err := tensorLeaves(primals, api)
	if err != nil {
		return nil, nil, nil, err
	}
	wrapped := make([]*dispatch.Tensor, len(leaves))
	inNodes := make([]*autodiff.Node, len(leaves))
	for i, x := range leaves {
		wrapped[i] = r.Track(l, x)
		_, inNodes[i] = autodiff.NodeOf(wrapped[i], l)
	}

	out, err := call(s, f, unflatten(wrapped, inSpec).(pytree.Tuple))
	if err != nil {
		return nil, nil, nil, err
	}
	out, aux, err = splitAux(out, hasAux, api)
	if err != nil {
		return nil, nil, nil, err
	}
	outs, outSpec, err := tensorLeaves(out, api+": output")
	if err != nil {
		return nil, nil, nil, err
	}
	if len(outs) == 0 {
		return nil, nil, nil, emptyOutput(api, outSpec)
	}
	if _, _, err := tensorLeaves(aux, api+": aux"); err != nil {
		return nil, nil, nil, err
	}
	inner := make([]*dispatch.Tensor, len(outs))
	outNodes := make([]*autodiff.Node, len(outs))
	for i, y := range outs {
		inner[i], outNodes[i] = autodiff.NodeOf(y, l)
	}
	if err := exit(); err != nil {
		return nil, nil, nil, err
	}

	fn = func(s *dispatch.Session, cotangents any) (grads pytree.Tuple, err error) {
		defer dispatch.Recover(&err)
		cts, ctSpec := pytree.Flatten(cotangents)
		if !ctSpec.Equal(outSpec) {
			return nil, invalid("Expected pytree structure of cotangents to be the same as pytree structure of "+
				"outputs to the function. cotangents: %s, primal output: %s", ctSpec, outSpec)
		}
		seeds := make(map[*autodiff.Node]*dispatch.Tensor, len(cts))
		for i, leaf := range cts {
			ct, ok := leaf.(*dispatch.Tensor)
			if !ok {
				return nil, invalid("%s: Expected cotangents to only contain Tensors, got %T", api, leaf)
			}
			if !ct.Shape().Equal(inner[i].Shape()) {
				return nil, invalid("Mismatch in shape: grad_output[%d] has a shape of %v and output[%d] has a "+
					"shape of %v.", i, ct.Shape(), i, inner[i].Shape())
			}
			node := outNodes[i]
			if node == nil {
				continue
			}
			if prev, ok := seeds[node]; ok {
				ct = prev.Add(ct)
			}
			seeds[node] = ct
		}
		computed := r.Backward(seeds)
		gs := make([]*dispatch.Tensor, len(leaves))
		for i, node := range inNodes {
			if g, ok := computed[node]; ok {
				gs[i] = g
			} else {
				gs[i] = s.ZerosLike(leaves[i])
			}
		}
		return unflatten(gs, inSpec).(pytree.Tuple), nil
	}
	return unflatten(inner, outSpec), fn, aux, nil
}
