package transforms

import (
	"github.com/born-ml/xform/internal/autodiff"
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
)

// JVP evaluates f(primals...) and the Jacobian-vector product of f at
// primals with tangents. primals and tangents must be pytree.Tuple values
// of identical structure containing only tensors. Option Strict rejects
// outputs that do not depend on the primals.
func JVP(s *dispatch.Session, f Func, primals, tangents any, opts ...Option) (any, any, error) {
	o := newOptions(s, opts)
	out, tangentOut, _, err := jvp(s, jvpAPI, f, primals, tangents, false, o.strict)
	return out, tangentOut, err
}

// JVPWithAux is JVP for f returning (output, aux).
func JVPWithAux(s *dispatch.Session, f Func, primals, tangents any, opts ...Option) (any, any, any, error) {
	o := newOptions(s, opts)
	return jvp(s, jvpAPI, f, primals, tangents, true, o.strict)
}

const jvpAPI = "jvp(f, primals, tangents)"

// jvp runs f on dual inputs under a forward level. api names the calling
// transform in error messages.
func jvp(s *dispatch.Session, api string, f Func, primals, tangents any, hasAux, strict bool) (
	output, tangentOut, aux any, err error,
) {
	ps, ts, spec, err := jvpInputs(primals, tangents)
	if err != nil {
		return nil, nil, nil, err
	}

	l, exit := enter(s, dispatch.Gradient, dispatch.Meta{Mode: dispatch.Forward, Interp: autodiff.NewForward()})
	defer exit()
	defer dispatch.Recover(&err)

	duals := make([]*dispatch.Tensor, len(ps))
	for i := range ps {
		duals[i] = autodiff.Dual(l, ps[i], ts[i])
	}
	out, err := call(s, f, unflatten(duals, spec).(pytree.Tuple))
	if err != nil {
		return nil, nil, nil, err
	}
	out, aux, err = splitAux(out, hasAux, api)
	if err != nil {
		return nil, nil, nil, err
	}
	outs, outSpec, err := tensorLeaves(out, api+": Expected f(*primals) to return only tensors")
	if err != nil {
		return nil, nil, nil, err
	}
	if len(outs) == 0 {
		return nil, nil, nil, emptyOutput(api, outSpec)
	}
	if _, _, err := tensorLeaves(aux, api+": aux"); err != nil {
		return nil, nil, nil, err
	}

	primalOut := make([]*dispatch.Tensor, len(outs))
	tangentsOut := make([]*dispatch.Tensor, len(outs))
	for i, y := range outs {
		primalOut[i], tangentsOut[i] = autodiff.TangentOf(y, l)
		if tangentsOut[i] != nil {
			continue
		}
		if strict {
			return nil, nil, nil, invalid("%s: strict=True: the output of f is independent of the inputs; "+
				"this is not allowed with strict=True", api)
		}
		tangentsOut[i] = s.ZerosLike(primalOut[i])
	}
	if err := exit(); err != nil {
		return nil, nil, nil, err
	}
	return unflatten(primalOut, outSpec), unflatten(tangentsOut, outSpec), aux, nil
}

// jvpInputs validates primals and tangents and returns their leaves.
func jvpInputs(primals, tangents any) ([]*dispatch.Tensor, []*dispatch.Tensor, *pytree.TreeSpec, error) {
	const api = "jvp(f, primals, tangents)"
	for _, arg := range []struct {
		name string
		v    any
	}{{"primals", primals}, {"tangents", tangents}} {
		if _, ok := arg.v.(pytree.Tuple); !ok {
			return nil, nil, nil, invalid("%s: Expected %s to be a tuple. E.g. it should be valid to call "+
				"f(*primals).", api, arg.name)
		}
	}
	pl, ps := pytree.Flatten(primals)
	tl, ts := pytree.Flatten(tangents)
	if !ps.Equal(ts) {
		return nil, nil, nil, invalid("%s: Expected primals and tangents to have the same python structure. For "+
			"example, if primals is a tuple of 3 tensors, tangents also must be. Got primals with structure %s "+
			"and tangents with structure %s", api, ps, ts)
	}
	if len(pl) == 0 {
		return nil, nil, nil, invalid("%s: Expected primals to contain at least one Tensor", api)
	}
	primalTs := make([]*dispatch.Tensor, len(pl))
	tangentTs := make([]*dispatch.Tensor, len(tl))
	for i := range pl {
		p, ok := pl[i].(*dispatch.Tensor)
		if !ok {
			return nil, nil, nil, invalid("%s: Expected primals to only contain Tensors, got %T", api, pl[i])
		}
		t, ok := tl[i].(*dispatch.Tensor)
		if !ok {
			return nil, nil, nil, invalid("%s: Expected tangents to only contain Tensors, got %T", api, tl[i])
		}
		if !p.Shape().Equal(t.Shape()) {
			return nil, nil, nil, invalid("%s: Expected primals and tangents to have the same shape, got %v and %v "+
				"at leaf %d", api, p.Shape(), t.Shape(), i)
		}
		primalTs[i], tangentTs[i] = p, t
	}
	return primalTs, tangentTs, ps, nil
}

