package script

import (
	"go.starlark.net/starlark"

	"github.com/born-ml/xform/internal/dispatch"
)

type method func(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

var methods map[string]method

func init() {
	methods = map[string]method{
		"sin":        unary((*dispatch.Tensor).Sin),
		"cos":        unary((*dispatch.Tensor).Cos),
		"exp":        unary((*dispatch.Tensor).Exp),
		"log":        unary((*dispatch.Tensor).Log),
		"tanh":       unary((*dispatch.Tensor).Tanh),
		"neg":        unary((*dispatch.Tensor).Neg),
		"clone":      unary((*dispatch.Tensor).Clone),
		"square":     unary((*dispatch.Tensor).Square),
		"diagonal":   unary((*dispatch.Tensor).Diagonal),
		"diag_embed": unary((*dispatch.Tensor).DiagEmbed),
		"normal_":    unary((*dispatch.Tensor).NormalInPlace),
		"sum":        dims((*dispatch.Tensor).Sum),
		"mean":       dims((*dispatch.Tensor).Mean),
		"reshape":    dims((*dispatch.Tensor).Reshape),
		"permute":    dims((*dispatch.Tensor).Permute),
		"expand":     dims((*dispatch.Tensor).Expand),
		"matmul":     binary((*dispatch.Tensor).MatMul),
		"atan2":      binary((*dispatch.Tensor).Atan2),
		"add_":       binary((*dispatch.Tensor).AddInPlace),
		"copy_":      binary((*dispatch.Tensor).CopyFrom),
		"pow":        scalar((*dispatch.Tensor).PowScalar),
		"unsqueeze":  ints1((*dispatch.Tensor).Unsqueeze),
		"squeeze":    ints1((*dispatch.Tensor).Squeeze),
		"transpose":  ints2((*dispatch.Tensor).Transpose),
		"select":     ints2((*dispatch.Tensor).Select),
		"movedim":    ints2((*dispatch.Tensor).MoveDim),
		"narrow":     narrow,
		"item":       item,
		"tolist":     tolist,
		"backward":   backward,
	}
}

func unary(fn func(*dispatch.Tensor) *dispatch.Tensor) method {
	return func(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(name, args, kwargs, 0); err != nil {
			return nil, err
		}
		return NewTensor(fn(t)), nil
	}
}

func dims(fn func(*dispatch.Tensor, ...int) *dispatch.Tensor) method {
	return func(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, errUnexpectedKeywords(name)
		}
		ds, err := ints(name, args)
		if err != nil {
			return nil, err
		}
		return NewTensor(fn(t, ds...)), nil
	}
}

func binary(fn func(*dispatch.Tensor, *dispatch.Tensor) *dispatch.Tensor) method {
	return func(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var other *Tensor
		if err := starlark.UnpackPositionalArgs(name, args, kwargs, 1, &other); err != nil {
			return nil, err
		}
		return NewTensor(fn(t, other.t)), nil
	}
}

func scalar(fn func(*dispatch.Tensor, float64) *dispatch.Tensor) method {
	return func(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var c starlark.Value
		if err := starlark.UnpackPositionalArgs(name, args, kwargs, 1, &c); err != nil {
			return nil, err
		}
		f, ok := starlark.AsFloat(c)
		if !ok {
			return nil, errWantNumber(name, c)
		}
		return NewTensor(fn(t, f)), nil
	}
}

func ints1(fn func(*dispatch.Tensor, int) *dispatch.Tensor) method {
	return func(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var a int
		if err := starlark.UnpackPositionalArgs(name, args, kwargs, 1, &a); err != nil {
			return nil, err
		}
		return NewTensor(fn(t, a)), nil
	}
}

func ints2(fn func(*dispatch.Tensor, int, int) *dispatch.Tensor) method {
	return func(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var a, b int
		if err := starlark.UnpackPositionalArgs(name, args, kwargs, 2, &a, &b); err != nil {
			return nil, err
		}
		return NewTensor(fn(t, a, b)), nil
	}
}

func narrow(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var dim, start, length int
	if err := starlark.UnpackPositionalArgs(name, args, kwargs, 3, &dim, &start, &length); err != nil {
		return nil, err
	}
	return NewTensor(t.Narrow(dim, start, length)), nil
}

func item(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(name, args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.Float(t.Item()), nil
}

// tolist returns the elements as a flat list of floats.
func tolist(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(name, args, kwargs, 0); err != nil {
		return nil, err
	}
	values := t.Values()
	elems := make([]starlark.Value, len(values))
	for i, v := range values {
		elems[i] = starlark.Float(v)
	}
	return starlark.NewList(elems), nil
}

func backward(name string, t *dispatch.Tensor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(name, args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.None, t.Backward()
}

func ints(name string, args starlark.Tuple) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := starlark.AsInt32(a)
		if err != nil {
			return nil, errWantInt(name, i, a)
		}
		out[i] = n
	}
	return out, nil
}
