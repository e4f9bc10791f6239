package script

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
	"github.com/born-ml/xform/internal/transforms"
)

func (e *Env) transforms() map[string]builtinFunc {
	return map[string]builtinFunc{
		"vmap":           e.vmap,
		"grad":           e.differentiate("grad", transforms.Grad),
		"grad_and_value": e.differentiate("grad_and_value", transforms.GradAndValue),
		"jacrev":         e.differentiate("jacrev", transforms.JacRev),
		"jacfwd":         e.differentiate("jacfwd", transforms.JacFwd),
		"hessian":        e.differentiate("hessian", transforms.Hessian),
		"vjp":            e.vjp,
		"jvp":            e.jvp,
		"no_grad":        e.noGrad,
	}
}

// callable adapts a Starlark callable to a transforms.Func.
func callable(thread *starlark.Thread, fn starlark.Callable) transforms.Func {
	return func(_ *dispatch.Session, args ...any) (any, error) {
		sargs := make(starlark.Tuple, len(args))
		for i, a := range args {
			sargs[i] = fromGo(a)
		}
		out, err := starlark.Call(thread, fn, sargs, nil)
		if err != nil {
			return nil, err
		}
		return toGo(out)
	}
}

// transformed returns a builtin that applies build(fn) to its positional
// arguments. The callable is bound to the calling thread on every call.
func (e *Env) transformed(name string, fn starlark.Callable, build func(transforms.Func) transforms.Func) *starlark.Builtin {
	return starlark.NewBuiltin(fmt.Sprintf("%s(%s)", name, fn.Name()), func(thread *starlark.Thread, b *starlark.Builtin,
		args starlark.Tuple, kwargs []starlark.Tuple) (v starlark.Value, err error) {
		defer dispatch.Recover(&err)
		if len(kwargs) > 0 {
			return nil, errUnexpectedKeywords(b.Name())
		}
		goArgs, err := toGoArgs(args)
		if err != nil {
			return nil, err
		}
		out, err := build(callable(thread, fn))(e.s, goArgs...)
		if err != nil {
			return nil, err
		}
		return fromGo(out), nil
	})
}

// vmap(func, in_dims=0, out_dims=0, randomness=None)
func (e *Env) vmap(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Callable
	var inDims, outDims starlark.Value = starlark.MakeInt(0), starlark.MakeInt(0)
	var randomness string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"func", &fn, "in_dims?", &inDims, "out_dims?", &outDims, "randomness?", &randomness); err != nil {
		return nil, err
	}
	in, err := toGo(inDims)
	if err != nil {
		return nil, err
	}
	out, err := toGo(outDims)
	if err != nil {
		return nil, err
	}
	opts := []transforms.Option{transforms.InDims(in), transforms.OutDims(out)}
	if randomness != "" {
		opts = append(opts, transforms.Randomness(randomness))
	}
	return e.transformed("vmap", fn, func(f transforms.Func) transforms.Func {
		return transforms.VMap(f, opts...)
	}), nil
}

// differentiate builds grad-like builtins: name(func, argnums=0,
// has_aux=False, randomness=None).
func (e *Env) differentiate(name string, transform func(transforms.Func, ...transforms.Option) transforms.Func) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var fn starlark.Callable
		var argnums starlark.Value = starlark.MakeInt(0)
		var hasAux bool
		var randomness string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"func", &fn, "argnums?", &argnums, "has_aux?", &hasAux, "randomness?", &randomness); err != nil {
			return nil, err
		}
		nums, err := toGo(argnums)
		if err != nil {
			return nil, err
		}
		opts := []transforms.Option{transforms.Argnums(nums), transforms.HasAux(hasAux)}
		if randomness != "" {
			opts = append(opts, transforms.Randomness(randomness))
		}
		return e.transformed(name, fn, func(f transforms.Func) transforms.Func {
			return transform(f, opts...)
		}), nil
	}
}

// vjp(func, *primals, has_aux=False) returns (output, vjp_fn) or
// (output, vjp_fn, aux).
func (e *Env) vjp(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (v starlark.Value, err error) {
	defer dispatch.Recover(&err)
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing argument for func", b.Name())
	}
	fn, ok := args[0].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%s: got %s for func, want callable", b.Name(), args[0].Type())
	}
	var hasAux bool
	if err := starlark.UnpackArgs(b.Name(), nil, kwargs, "has_aux?", &hasAux); err != nil {
		return nil, err
	}
	primals, err := toGoArgs(args[1:])
	if err != nil {
		return nil, err
	}

	out, vjpFn, aux, err := transforms.VJPWithAux(e.s, auxOptional(callable(thread, fn), hasAux), primals)
	if err != nil {
		return nil, err
	}
	fnValue := starlark.NewBuiltin("vjp_fn", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple,
		kwargs []starlark.Tuple) (v starlark.Value, err error) {
		defer dispatch.Recover(&err)
		var cotangents starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &cotangents); err != nil {
			return nil, err
		}
		ct, err := toGo(cotangents)
		if err != nil {
			return nil, err
		}
		grads, err := vjpFn(e.s, ct)
		if err != nil {
			return nil, err
		}
		return fromGo(grads), nil
	})
	if hasAux {
		return starlark.Tuple{fromGo(out), fnValue, fromGo(aux)}, nil
	}
	return starlark.Tuple{fromGo(out), fnValue}, nil
}

// jvp(func, primals, tangents, strict=False, has_aux=False) returns
// (output, jvp_out) or (output, jvp_out, aux).
func (e *Env) jvp(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (v starlark.Value, err error) {
	defer dispatch.Recover(&err)
	var fn starlark.Callable
	var primals, tangents starlark.Value
	var strict, hasAux bool
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "func", &fn, "primals", &primals,
		"tangents", &tangents, "strict?", &strict, "has_aux?", &hasAux); err != nil {
		return nil, err
	}
	ps, err := toGo(primals)
	if err != nil {
		return nil, err
	}
	ts, err := toGo(tangents)
	if err != nil {
		return nil, err
	}
	out, tangentOut, aux, err := transforms.JVPWithAux(e.s, auxOptional(callable(thread, fn), hasAux), ps, ts,
		transforms.Strict(strict))
	if err != nil {
		return nil, err
	}
	if hasAux {
		return starlark.Tuple{fromGo(out), fromGo(tangentOut), fromGo(aux)}, nil
	}
	return starlark.Tuple{fromGo(out), fromGo(tangentOut)}, nil
}

// auxOptional lets the aux-returning drivers serve functions without aux.
func auxOptional(f transforms.Func, hasAux bool) transforms.Func {
	if hasAux {
		return f
	}
	return func(s *dispatch.Session, args ...any) (any, error) {
		out, err := f(s, args...)
		if err != nil {
			return nil, err
		}
		return pytree.Tuple{out, pytree.Tuple{}}, nil
	}
}

// no_grad(func) calls func() with gradient recording disabled on every
// active reverse-mode level.
func (e *Env) noGrad(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Callable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "func", &fn); err != nil {
		return nil, err
	}
	var out starlark.Value
	err := e.s.NoGrad(func() (err error) {
		out, err = starlark.Call(thread, fn, nil, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
