package script

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
)

// toGo converts a Starlark value into a pytree: tuples, lists and dicts
// with string keys become containers, tensors become leaves and scalars
// become their Go counterparts. Other values pass through unchanged.
func toGo(v starlark.Value) (any, error) {
	switch v := v.(type) {
	case *Tensor:
		return v.t, nil
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(v), nil
	case starlark.Int:
		n, ok := v.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", v)
		}
		return int(n), nil
	case starlark.Float:
		return float64(v), nil
	case starlark.String:
		return string(v), nil
	case starlark.Tuple:
		out := make(pytree.Tuple, len(v))
		for i, e := range v {
			g, err := toGo(e)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case *starlark.List:
		out := make(pytree.List, v.Len())
		for i := range v.Len() {
			g, err := toGo(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case *starlark.Dict:
		out := make(pytree.Dict, v.Len())
		for _, kv := range v.Items() {
			key, ok := kv[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings, got %s", kv[0].Type())
			}
			g, err := toGo(kv[1])
			if err != nil {
				return nil, err
			}
			out[string(key)] = g
		}
		return out, nil
	}
	return v, nil
}

func toGoArgs(args starlark.Tuple) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		g, err := toGo(a)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

// fromGo is the inverse of toGo.
func fromGo(v any) starlark.Value {
	switch v := v.(type) {
	case nil:
		return starlark.None
	case starlark.Value:
		return v
	case *dispatch.Tensor:
		return NewTensor(v)
	case bool:
		return starlark.Bool(v)
	case int:
		return starlark.MakeInt(v)
	case float64:
		return starlark.Float(v)
	case string:
		return starlark.String(v)
	case pytree.Tuple:
		out := make(starlark.Tuple, len(v))
		for i, e := range v {
			out[i] = fromGo(e)
		}
		return out
	case pytree.List:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			elems[i] = fromGo(e)
		}
		return starlark.NewList(elems)
	case pytree.Dict:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := starlark.NewDict(len(v))
		for _, k := range keys {
			_ = d.SetKey(starlark.String(k), fromGo(v[k]))
		}
		return d
	}
	panic(fmt.Errorf("unsupported type for starlark: %T", v))
}

func errUnexpectedKeywords(name string) error {
	return fmt.Errorf("%s: unexpected keyword arguments", name)
}

func errWantNumber(name string, v starlark.Value) error {
	return fmt.Errorf("%s: got %s, want number", name, v.Type())
}

func errWantInt(name string, i int, v starlark.Value) error {
	return fmt.Errorf("%s: argument %d: got %s, want int", name, i+1, v.Type())
}
