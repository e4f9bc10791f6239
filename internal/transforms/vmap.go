package transforms

import (
	"fmt"

	"github.com/born-ml/xform/internal/batching"
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
	"github.com/born-ml/xform/internal/tensor"
)

// VMap vectorizes f over a batch dimension of its inputs.
//
// The returned function pushes a Batched level whose size is the common
// size of the mapped input dimensions, calls f once on batched values and
// moves the batch dimension of every output to its out_dim. Options:
// InDims (default 0), OutDims (default 0) and Randomness (default from the
// session config).
func VMap(f Func, opts ...Option) Func {
	return func(s *dispatch.Session, args ...any) (result any, err error) {
		o := newOptions(s, opts)
		randomness, err := dispatch.ParseRandomness(o.randomness)
		if err != nil {
			return nil, fmt.Errorf("vmap: %w", err)
		}
		leaves, inDims, size, err := batchedInputs(args, o.inDims)
		if err != nil {
			return nil, err
		}

		l, exit := enter(s, dispatch.Batched, dispatch.Meta{
			BatchSize:  size,
			Randomness: randomness,
			Interp:     batching.NewInterpreter(),
		})
		defer exit()

		wrapped, spec := pytree.Flatten(pytree.Tuple(args))
		for i, dim := range inDims {
			if dim >= 0 {
				wrapped[i] = batching.Wrap(l, leaves[i].(*dispatch.Tensor), dim)
			}
		}
		batchedArgs, err := pytree.Unflatten(wrapped, spec)
		if err != nil {
			return nil, err
		}

		out, err := call(s, f, batchedArgs.(pytree.Tuple))
		if err != nil {
			return nil, err
		}
		result, err = unbatchOutputs(l, out, o.outDims)
		if err != nil {
			return nil, err
		}
		if err := exit(); err != nil {
			return nil, err
		}
		return result, nil
	}
}

// batchedInputs validates in_dims against args. It returns the flattened
// argument leaves, the normalized in_dim of every leaf (-1 for unmapped
// leaves) and the batch size.
func batchedInputs(args []any, inDims any) ([]any, []int, int, error) {
	if len(args) == 0 {
		return nil, nil, 0, invalid("vmap(f)(<inputs>): got no inputs. Maybe you forgot to add inputs, or you " +
			"are trying to vmap over a function with no inputs. The latter is unsupported.")
	}
	switch inDims.(type) {
	case int, pytree.Tuple:
	default:
		return nil, nil, 0, invalid("vmap(f, in_dims=%v, ...): expected `in_dims` to be int or a (potentially "+
			"nested) tuple matching the structure of inputs, got: %T.", inDims, inDims)
	}

	tree := pytree.Tuple(args)
	prefixes, err := pytree.BroadcastPrefix(inDims, tree)
	if err != nil {
		return nil, nil, 0, invalid("vmap(f, in_dims=%v, ...)(<inputs>): in_dims is not compatible with the "+
			"structure of `inputs`. in_dims has structure %s but inputs has structure %s.",
			inDims, pytree.StructureString(inDims), pytree.StructureString(tree))
	}

	leaves := pytree.Leaves(tree)
	dims := make([]int, len(leaves))
	size := -1
	var sizes []int
	for i, leaf := range leaves {
		dims[i] = -1
		if prefixes[i] == nil {
			continue
		}
		dim, ok := prefixes[i].(int)
		if !ok {
			return nil, nil, 0, invalid("vmap(f, in_dims=%v, ...)(<inputs>): in_dims must be int or None for "+
				"every input, got %T", inDims, prefixes[i])
		}
		t, ok := leaf.(*dispatch.Tensor)
		if !ok {
			return nil, nil, 0, invalid("vmap(f, in_dims=%v, ...)(<inputs>): Got in_dim=%d for an input but the "+
				"input is of type %T. We cannot vmap over non-Tensor arguments, please use None as the "+
				"respective in_dim", inDims, dim, leaf)
		}
		rank := t.Dim()
		if dim < -rank || dim >= rank {
			return nil, nil, 0, invalid("vmap(f, in_dims=%v, ...)(<inputs>): Got in_dim=%d for some input, but "+
				"that input is a Tensor of dimensionality %d so expected in_dim to satisfy -%d <= in_dim < %d.",
				inDims, dim, rank, rank, rank)
		}
		if dim < 0 {
			dim += rank
		}
		dims[i] = dim
		n := t.Shape()[dim]
		sizes = append(sizes, n)
		if size < 0 {
			size = n
		}
	}
	if size < 0 {
		return nil, nil, 0, invalid("vmap(f, in_dims=%v, ...)(<inputs>): at least one input must be a Tensor "+
			"mapped over by in_dims, got inputs with structure %s", inDims, pytree.StructureString(tree))
	}
	for _, n := range sizes {
		if n != size {
			return nil, nil, 0, invalid("vmap: Expected all tensors to have the same size in the mapped "+
				"dimension, got sizes %v for the mapped dimension", sizes)
		}
	}
	return leaves, dims, size, nil
}

// unbatchOutputs moves the batch dim of every output of level l to its
// out_dim. Unbatched outputs are expanded to the batch size.
func unbatchOutputs(l *dispatch.Level, out, outDims any) (result any, err error) {
	defer dispatch.Recover(&err)

	switch outDims.(type) {
	case nil, int, pytree.Tuple, pytree.List, pytree.Dict:
	default:
		return nil, invalid("vmap(f, ..., out_dims=%v): out_dims must be an int or a python collection of ints "+
			"representing where in the outputs the vmapped dimension should appear.", outDims)
	}
	prefixes, err := pytree.BroadcastPrefix(outDims, out)
	if err != nil {
		return nil, invalid("vmap(f, ..., out_dims=%v)(<inputs>): out_dims is not compatible with the structure "+
			"of `outputs`. out_dims has structure %s but outputs has structure %s.",
			outDims, pytree.StructureString(outDims), pytree.StructureString(out))
	}

	leaves, spec := pytree.Flatten(out)
	for i, leaf := range leaves {
		var dim *int
		if prefixes[i] != nil {
			d, ok := prefixes[i].(int)
			if !ok {
				return nil, invalid("vmap(f, ..., out_dims=%v): out_dims must be an int or a python collection of "+
					"ints representing where in the outputs the vmapped dimension should appear.", outDims)
			}
			dim = &d
		}
		t, ok := leaf.(*dispatch.Tensor)
		if !ok {
			if dim == nil {
				continue
			}
			return nil, fmt.Errorf("%w: vmap(f, ...): `f` must only return Tensors, got type %T as a return. "+
				"Did you mean to set out_dims= to None for output?", dispatch.ErrUnsupportedReturnType, leaf)
		}
		leaves[i], err = unbatch(l, t, dim)
		if err != nil {
			return nil, err
		}
	}
	return pytree.Unflatten(leaves, spec)
}

func unbatch(l *dispatch.Level, t *dispatch.Tensor, outDim *int) (*dispatch.Tensor, error) {
	inner, bdim := batching.Unwrap(t, l)
	if outDim == nil {
		if bdim >= 0 {
			return nil, invalid("vmap(f, ..., out_dims=None)(<inputs>): `f` can not return a BatchedTensor when " +
				"out_dim is None")
		}
		return inner, nil
	}
	rank := inner.Dim()
	if bdim < 0 {
		rank++
	}
	dim, err := tensor.NormalizeDim(*outDim, rank)
	if err != nil {
		return nil, err
	}
	if bdim < 0 {
		shape := make([]int, rank)
		for i := range shape {
			shape[i] = -1
		}
		shape[0] = l.BatchSize
		inner, bdim = inner.Unsqueeze(0).Expand(shape...), 0
	}
	return inner.MoveDim(bdim, dim), nil
}
