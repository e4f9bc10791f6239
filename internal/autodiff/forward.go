package autodiff

import (
	"github.com/born-ml/xform/internal/autodiff/ops"
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/tensor"
)

// Tangent is the payload of values a forward-mode level tracks. A nil T is
// a zero tangent.
type Tangent struct {
	T *dispatch.Tensor
}

// LogicalShape implements dispatch.Payload.
func (t Tangent) LogicalShape(inner tensor.Shape) tensor.Shape {
	return inner
}

func (t Tangent) String() string {
	if t.T == nil {
		return "tangent=zero"
	}
	return "tangent"
}

// Forward is the interpreter of forward-mode Gradient levels.
type Forward struct{}

// NewForward creates a forward-mode interpreter.
func NewForward() *Forward {
	return &Forward{}
}

// Dual pairs primal with tangent at level l.
func Dual(l *dispatch.Level, primal, tangent *dispatch.Tensor) *dispatch.Tensor {
	return dispatch.Wrap(l, primal, Tangent{T: tangent})
}

// TangentOf returns the primal of x at l and its tangent. The tangent is nil
// when l does not track x or the tangent is zero.
func TangentOf(x *dispatch.Tensor, l *dispatch.Level) (*dispatch.Tensor, *dispatch.Tensor) {
	inner, payload, ok := x.Unwrap(l)
	if !ok {
		return inner, nil
	}
	return inner, payload.(Tangent).T
}

// Process implements dispatch.Interpreter.
func (f *Forward) Process(
	s *dispatch.Session,
	l *dispatch.Level,
	p *dispatch.Primitive,
	args []*dispatch.Tensor,
	params dispatch.Params,
) *dispatch.Tensor {
	primals := make([]*dispatch.Tensor, len(args))
	tangents := make([]*dispatch.Tensor, len(args))
	nonZero := false
	for i, a := range args {
		primals[i], tangents[i] = TangentOf(a, l)
		nonZero = nonZero || tangents[i] != nil
	}
	dstTracked := false
	if len(args) > 0 {
		_, _, dstTracked = args[0].Unwrap(l)
	}
	differentiate := nonZero && !p.Random && !p.ScalarResult

	if differentiate && p.InPlace && !dstTracked && args[0].CreatedBefore(l) {
		panic(capturedMutation(p))
	}

	out := s.CallBelow(l, p, primals, params)

	switch {
	case p.InPlace && p.Random:
		if dstTracked {
			args[0].SetPayload(l, Tangent{})
		}
		return args[0]
	case !differentiate:
		if p.InPlace {
			return args[0]
		}
		return out
	}

	tangent, err := ops.JVP(p, primals, tangents, out, params)
	if err != nil {
		panic(err)
	}
	if p.InPlace {
		if dstTracked {
			args[0].SetPayload(l, Tangent{T: tangent})
		} else {
			args[0].Promote(l, Tangent{T: tangent})
		}
		return args[0]
	}
	return Dual(l, out, tangent)
}
