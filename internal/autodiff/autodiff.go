// Package autodiff implements the interpreters of Gradient levels.
//
// Reverse records every primitive call on tracked values on a GradientTape
// and replays it backwards on demand. Forward carries a tangent alongside
// each tracked value and applies the tangent rule of every primitive as it
// runs. Both compute derivatives with ordinary dispatched tensor calls, so
// enclosing levels see, batch and differentiate those computations like any
// other user code.
//
// Architecture:
//   - Node: payload of values a reverse level tracks
//   - GradientTape: records operations and runs the backward pass
//   - ops.Operation: each primitive's backward pass
//   - Tangent: payload of values a forward level tracks
//   - ops.JVP: each primitive's tangent rule
package autodiff

import (
	"fmt"

	"github.com/born-ml/xform/internal/autodiff/ops"
	"github.com/born-ml/xform/internal/dispatch"
)

// Reverse is the interpreter of reverse-mode Gradient levels. Each level
// gets its own Reverse and therefore its own tape.
type Reverse struct {
	tape   *GradientTape
	nextID int
}

// NewReverse creates an interpreter with an empty tape.
func NewReverse() *Reverse {
	return &Reverse{tape: NewGradientTape()}
}

// Tape returns the interpreter's gradient tape.
func (r *Reverse) Tape() *GradientTape {
	return r.tape
}

func (r *Reverse) newNode() *Node {
	r.nextID++
	return &Node{id: r.nextID}
}

// Track wraps x as a graph leaf of level l.
func (r *Reverse) Track(l *dispatch.Level, x *dispatch.Tensor) *dispatch.Tensor {
	return dispatch.Wrap(l, x, r.newNode())
}

// Backward propagates seeds through the tape. Call it once the level has
// been popped so the backward pass is not recorded on the level itself.
func (r *Reverse) Backward(seeds map[*Node]*dispatch.Tensor) map[*Node]*dispatch.Tensor {
	return r.tape.Backward(seeds)
}

// NodeOf returns the inner value of x at l and its node. The node is nil
// when l does not track x.
func NodeOf(x *dispatch.Tensor, l *dispatch.Level) (*dispatch.Tensor, *Node) {
	inner, payload, ok := x.Unwrap(l)
	if !ok {
		return inner, nil
	}
	return inner, payload.(*Node)
}

// Process implements dispatch.Interpreter.
func (r *Reverse) Process(
	s *dispatch.Session,
	l *dispatch.Level,
	p *dispatch.Primitive,
	args []*dispatch.Tensor,
	params dispatch.Params,
) *dispatch.Tensor {
	inner := make([]*dispatch.Tensor, len(args))
	nodes := make([]*Node, len(args))
	tracked := false
	for i, a := range args {
		inner[i], nodes[i] = NodeOf(a, l)
		tracked = tracked || nodes[i] != nil
	}
	record := tracked && l.RecordsGrad && !p.Random && !p.ScalarResult

	if record && p.InPlace && nodes[0] == nil && args[0].CreatedBefore(l) {
		panic(capturedMutation(p))
	}

	out := s.CallBelow(l, p, inner, params)

	switch {
	case p.InPlace && p.Random:
		// Overwritten with fresh samples: the old graph no longer applies.
		if nodes[0] != nil {
			args[0].SetPayload(l, r.newNode())
		}
		return args[0]
	case !record:
		if p.InPlace {
			return args[0]
		}
		return out
	}

	op, err := ops.For(p, inner, out, params)
	if err != nil {
		panic(err)
	}
	node := r.newNode()
	r.tape.Record(op, nodes, node)

	if p.InPlace {
		if nodes[0] != nil {
			args[0].SetPayload(l, node)
		} else {
			args[0].Promote(l, node)
		}
		return args[0]
	}
	return dispatch.Wrap(l, out, node)
}

func capturedMutation(p *dispatch.Primitive) error {
	return fmt.Errorf("%w: During a grad (vjp, jvp, grad, etc) transform, the function provided attempted to "+
		"call in-place operation (%s) that would mutate a captured Tensor. A captured Tensor is one that is "+
		"defined outside of the function transform and is not an input to the transformed function",
		dispatch.ErrCapturedMutation, p.Name)
}
