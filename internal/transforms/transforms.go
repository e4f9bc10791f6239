// Package transforms implements the function transforms: VMap, Grad,
// GradAndValue, VJP, JVP, JacRev, JacFwd and Hessian.
//
// A transformed function is again a Func, so transforms compose by plain
// nesting. Every driver pushes one level on the session's stack for the
// duration of the call and pops it on every exit path. Failures raised
// while the level is active surface as returned errors wrapping one of the
// dispatch sentinels.
package transforms

import (
	"fmt"
	"sync"

	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
)

// Func is a function over pytrees of tensors. Positional arguments may be
// tensors, pytree containers of tensors or arbitrary constants.
type Func func(s *dispatch.Session, args ...any) (any, error)

// Option configures a transform.
type Option func(*options)

type options struct {
	inDims     any
	outDims    any
	randomness string
	argnums    any
	hasAux     bool
	strict     bool
}

func newOptions(s *dispatch.Session, opts []Option) *options {
	o := &options{
		inDims:     0,
		outDims:    0,
		randomness: s.Config().Randomness,
		argnums:    0,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// InDims sets which dimension of each input vmap maps over: an int for
// every input, or a pytree.Tuple prefix of the arguments with ints and nil
// (not mapped) leaves.
func InDims(dims any) Option {
	return func(o *options) { o.inDims = dims }
}

// OutDims sets where vmap places the batch dimension of each output: an
// int or a pytree prefix of the outputs with ints and nil leaves.
func OutDims(dims any) Option {
	return func(o *options) { o.outDims = dims }
}

// Randomness sets the randomness mode, "error", "same" or "different", of
// VMap and of the vmapped basis in JacRev and JacFwd.
func Randomness(mode string) Option {
	return func(o *options) { o.randomness = mode }
}

// Argnums selects the positional arguments to differentiate: an int, or a
// []int / pytree.Tuple of ints to get one result per argument.
func Argnums(argnums any) Option {
	return func(o *options) { o.argnums = argnums }
}

// HasAux declares that f returns a pair (output, aux) whose second element
// is passed through without differentiation.
func HasAux(hasAux bool) Option {
	return func(o *options) { o.hasAux = hasAux }
}

// Strict makes JVP fail when an output does not depend on the primals.
func Strict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{dispatch.ErrInvalidArgument}, args...)...)
}

func emptyOutput(api string, spec *pytree.TreeSpec) error {
	return invalid("%s: Expected f to be a function that has non-empty output (got output = %s)", api, spec)
}

// enter pushes a level and returns a function that pops it exactly once.
// Drivers defer the pop and also call it on the success path to observe
// stack errors.
func enter(s *dispatch.Session, kind dispatch.Kind, meta dispatch.Meta) (*dispatch.Level, func() error) {
	l := s.Push(kind, meta)
	return l, sync.OnceValue(func() error { return s.Pop(l) })
}

// call runs f and converts a panic raised by a primitive into an error.
func call(s *dispatch.Session, f Func, args []any) (out any, err error) {
	defer dispatch.Recover(&err)
	return f(s, args...)
}

// tensorLeaves flattens tree and requires every leaf to be a tensor.
func tensorLeaves(tree any, what string) ([]*dispatch.Tensor, *pytree.TreeSpec, error) {
	leaves, spec := pytree.Flatten(tree)
	out := make([]*dispatch.Tensor, len(leaves))
	for i, leaf := range leaves {
		t, ok := leaf.(*dispatch.Tensor)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s: Expected tensors, got unsupported type %T",
				dispatch.ErrUnsupportedReturnType, what, leaf)
		}
		out[i] = t
	}
	return out, spec, nil
}

// unflatten rebuilds spec from tensors.
func unflatten(ts []*dispatch.Tensor, spec *pytree.TreeSpec) any {
	leaves := make([]any, len(ts))
	for i, t := range ts {
		leaves[i] = t
	}
	out, err := pytree.Unflatten(leaves, spec)
	if err != nil {
		panic(err)
	}
	return out
}

// splitAux separates (output, aux) when hasAux is set.
func splitAux(out any, hasAux bool, api string) (any, any, error) {
	if !hasAux {
		return out, nil, nil
	}
	pair, ok := out.(pytree.Tuple)
	if !ok || len(pair) != 2 {
		return nil, nil, invalid("%s: output of function f should be a tuple: (output, aux) if has_aux is True", api)
	}
	return pair[0], pair[1], nil
}
