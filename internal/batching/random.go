package batching

import (
	"fmt"

	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/tensor"
)

// random applies the level's randomness mode to a random primitive.
//
//   - error: every random call fails.
//   - same: the draw happens below the level once and is shared by every
//     batch element; batched inputs are rejected.
//   - different: the draw gets a leading dim of the batch size, which
//     becomes the batch dim of the result.
func (c *Context) random(orig, args []*dispatch.Tensor, bdims []int, p dispatch.Params) *dispatch.Tensor {
	l := c.Level
	if l.Randomness == dispatch.RandomnessError {
		panic(fmt.Errorf("%w: vmap: called random operation while in randomness error mode. Please either use the "+
			"'same' or 'different' randomness flags on vmap or perform the randomness operation out of vmap",
			dispatch.ErrRandomness))
	}
	batched := len(args) > 0 && bdims[0] >= 0
	if l.Randomness == dispatch.RandomnessSame && batched {
		panic(fmt.Errorf("%w: Vmap does not currently support same randomness with a batched tensor input (%s)",
			dispatch.ErrRandomness, c.Prim.Name))
	}

	if c.Prim.InPlace {
		if l.Randomness == dispatch.RandomnessDifferent && !batched {
			panic(fmt.Errorf("%w: vmap: Cannot ask for different inplace randomness on an unbatched tensor. "+
				"This will appear like same randomness", dispatch.ErrRandomness))
		}
		c.Forward(args, p)
		return orig[0]
	}

	if l.Randomness == dispatch.RandomnessSame {
		return c.Forward(args, p)
	}
	if batched {
		return Wrap(l, c.Forward(args, p), bdims[0])
	}

	shape := p.Shape
	if len(args) > 0 {
		shape = args[0].Shape()
	}
	prim := c.Prim
	if prim == dispatch.RandnLike {
		prim = dispatch.Randn
	}
	batchedShape := append(tensor.Shape{c.BatchSize()}, shape...)
	return Wrap(l, c.Call(prim, nil, dispatch.Params{Shape: batchedShape}), 0)
}
