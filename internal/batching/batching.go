// Package batching implements the interpreter of Batched levels.
//
// A batched value is a dispatch.Tensor wrapped with a BDim payload: the
// index of the batch dimension inside its inner value. Primitive calls are
// answered by a batching rule when one is registered, otherwise by the
// slice-and-stack fallback. Random primitives follow the level's
// randomness mode.
package batching

import (
	"fmt"
	"slices"

	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/tensor"
)

// BDim is the batch dimension of a batched value's inner tensor.
type BDim int

// LogicalShape removes the batch dimension.
func (b BDim) LogicalShape(inner tensor.Shape) tensor.Shape {
	return slices.Delete(inner.Clone(), int(b), int(b)+1)
}

func (b BDim) String() string {
	return fmt.Sprintf("bdim=%d", int(b))
}

// Wrap marks dimension bdim of x as the batch dimension of level l. A
// negative bdim means x is not batched and is returned as is.
func Wrap(l *dispatch.Level, x *dispatch.Tensor, bdim int) *dispatch.Tensor {
	if bdim < 0 {
		return x
	}
	return dispatch.Wrap(l, x, BDim(bdim))
}

// Unwrap returns the inner value and batch dim of x at level l, or x and
// -1 when x is not batched at l.
func Unwrap(x *dispatch.Tensor, l *dispatch.Level) (*dispatch.Tensor, int) {
	inner, payload, ok := x.Unwrap(l)
	if !ok {
		return inner, -1
	}
	return inner, int(payload.(BDim))
}

// Context is handed to batching rules.
type Context struct {
	S     *dispatch.Session
	Level *dispatch.Level
	Prim  *dispatch.Primitive
}

// BatchSize returns the size of the level's batch dimension.
func (c *Context) BatchSize() int {
	return c.Level.BatchSize
}

// Call runs p on args below the level.
func (c *Context) Call(p *dispatch.Primitive, args []*dispatch.Tensor, params dispatch.Params) *dispatch.Tensor {
	return c.S.CallBelow(c.Level, p, args, params)
}

// Forward runs the primitive being batched on args below the level.
func (c *Context) Forward(args []*dispatch.Tensor, params dispatch.Params) *dispatch.Tensor {
	return c.Call(c.Prim, args, params)
}

// Interpreter is the dispatch.Interpreter of Batched levels.
type Interpreter struct {
	rules *Registry
}

// NewInterpreter returns an interpreter using the default rule registry.
func NewInterpreter() *Interpreter {
	return &Interpreter{rules: defaultRegistry}
}

// NewInterpreterWithRegistry returns an interpreter using rules.
func NewInterpreterWithRegistry(rules *Registry) *Interpreter {
	return &Interpreter{rules: rules}
}

// Process implements dispatch.Interpreter.
func (in *Interpreter) Process(
	s *dispatch.Session,
	l *dispatch.Level,
	p *dispatch.Primitive,
	args []*dispatch.Tensor,
	params dispatch.Params,
) *dispatch.Tensor {
	c := &Context{S: s, Level: l, Prim: p}
	inner := make([]*dispatch.Tensor, len(args))
	bdims := make([]int, len(args))
	batched := false
	for i, a := range args {
		inner[i], bdims[i] = Unwrap(a, l)
		batched = batched || bdims[i] >= 0
	}

	switch {
	case p.Random:
		return c.random(args, inner, bdims, params)
	case !batched:
		return c.Forward(inner, params)
	case p.ScalarResult:
		panic(fmt.Errorf("%w: Batching rule not implemented for %s. We could not generate a fallback: "+
			"the operation returns a Go value that cannot carry a batch dimension",
			dispatch.ErrBatchingRuleNotImplemented, p.Name))
	}

	rule, ok := in.rules.Get(p.Name)
	if !ok {
		return c.fallback(inner, bdims, params)
	}
	out, bdim := rule(c, inner, bdims, params)
	if p.InPlace {
		return args[0]
	}
	return Wrap(l, out, bdim)
}

// fallback slices every batched argument along its batch dim, runs the
// primitive once per batch element and stacks the results along dim 0.
func (c *Context) fallback(args []*dispatch.Tensor, bdims []int, params dispatch.Params) *dispatch.Tensor {
	name := c.Prim.Name
	if c.Prim.View || c.Prim.InPlace {
		panic(fmt.Errorf("%w: Batching rule not implemented for %s; the fallback path doesn't work on out= or view ops",
			dispatch.ErrNotImplementedForViewOp, name))
	}
	size := c.BatchSize()
	if size == 0 {
		panic(fmt.Errorf("%w: The fallback path does not support vmap over dims of size 0. "+
			"Consider providing a batching rule for %s", dispatch.ErrEmptyBatchFallback, name))
	}
	if c.S.Config().FallbackWarnings {
		c.S.Logger().Warn("There is a performance drop because we have not yet implemented the batching rule for "+name,
			"level", c.Level)
	}

	results := make([]*dispatch.Tensor, size)
	for i := 0; i < size; i++ {
		sliced := make([]*dispatch.Tensor, len(args))
		for j, a := range args {
			if bdims[j] < 0 {
				sliced[j] = a
				continue
			}
			sliced[j] = a.Select(bdims[j], i)
		}
		results[i] = c.Forward(sliced, params)
	}
	return Wrap(c.Level, c.S.Stack(results, 0), 0)
}
