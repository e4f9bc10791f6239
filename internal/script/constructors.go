package script

import (
	"fmt"
	"slices"

	"go.starlark.net/starlark"

	"github.com/born-ml/xform/internal/dispatch"
)

func (e *Env) constructors() map[string]builtinFunc {
	shaped := func(fn func(shape ...int) *dispatch.Tensor) builtinFunc {
		return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (v starlark.Value, err error) {
			defer dispatch.Recover(&err)
			if len(kwargs) > 0 {
				return nil, errUnexpectedKeywords(b.Name())
			}
			shape, err := ints(b.Name(), args)
			if err != nil {
				return nil, err
			}
			return NewTensor(fn(shape...)), nil
		}
	}
	sized := func(fn func(n int) *dispatch.Tensor) builtinFunc {
		return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (v starlark.Value, err error) {
			defer dispatch.Recover(&err)
			var n int
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &n); err != nil {
				return nil, err
			}
			return NewTensor(fn(n)), nil
		}
	}
	joined := func(fn func([]*dispatch.Tensor, int) *dispatch.Tensor) builtinFunc {
		return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (v starlark.Value, err error) {
			defer dispatch.Recover(&err)
			var seq starlark.Iterable
			dim := 0
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "tensors", &seq, "dim?", &dim); err != nil {
				return nil, err
			}
			var ts []*dispatch.Tensor
			iter := seq.Iterate()
			defer iter.Done()
			var x starlark.Value
			for iter.Next(&x) {
				t, ok := x.(*Tensor)
				if !ok {
					return nil, fmt.Errorf("%s: got %s, want tensor", b.Name(), x.Type())
				}
				ts = append(ts, t.t)
			}
			return NewTensor(fn(ts, dim)), nil
		}
	}

	return map[string]builtinFunc{
		"tensor": e.tensor,
		"zeros":  shaped(e.s.Zeros),
		"ones":   shaped(e.s.Ones),
		"rand":   shaped(e.s.Rand),
		"randn":  shaped(e.s.Randn),
		"eye":    sized(e.s.Eye),
		"arange": sized(e.s.Arange),
		"cat":    joined(e.s.Cat),
		"stack":  joined(e.s.Stack),
	}
}

// tensor builds a tensor from a number or a nested list of numbers.
func (e *Env) tensor(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &data); err != nil {
		return nil, err
	}
	var values []float64
	shape, err := flattenNested(b.Name(), data, 0, &values)
	if err != nil {
		return nil, err
	}
	t, err := e.s.FromSlice(values, shape...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewTensor(t), nil
}

// flattenNested appends the numbers of a nested list to values and returns
// the shape, requiring every row at a depth to have the same length.
func flattenNested(name string, v starlark.Value, depth int, values *[]float64) ([]int, error) {
	if f, ok := starlark.AsFloat(v); ok {
		*values = append(*values, f)
		return []int{}, nil
	}
	seq, ok := v.(starlark.Indexable)
	if _, isString := v.(starlark.String); !ok || isString {
		return nil, fmt.Errorf("%s: got %s at depth %d, want number or list", name, v.Type(), depth)
	}
	var inner []int
	for i := range seq.Len() {
		shape, err := flattenNested(name, seq.Index(i), depth+1, values)
		if err != nil {
			return nil, err
		}
		if i > 0 && !slices.Equal(shape, inner) {
			return nil, fmt.Errorf("%s: ragged nested list at depth %d", name, depth)
		}
		inner = shape
	}
	return append([]int{seq.Len()}, inner...), nil
}
