package dispatch

import (
	"fmt"

	"github.com/born-ml/xform/internal/tensor"
)

// Payload is the per-level annotation a wrapped Tensor carries.
type Payload interface {
	// LogicalShape maps the inner value's shape to the shape user code sees
	// at this level.
	LogicalShape(inner tensor.Shape) tensor.Shape
}

// Tensor is a value as seen by user code under any number of transforms.
//
// A base Tensor holds a RawTensor. A wrapped Tensor holds the value one
// level down (inner) plus the payload its level attached: a batch dim, an
// autodiff graph node or a tangent. Levels nest strictly: inner values are
// either base tensors or wrapped at lower levels.
type Tensor struct {
	s       *Session
	raw     *tensor.RawTensor
	level   *Level
	inner   *Tensor
	payload Payload
	epoch   int
}

func (s *Session) newTensor(raw *tensor.RawTensor) *Tensor {
	return &Tensor{s: s, raw: raw, epoch: s.stack.NextID()}
}

// Wrap annotates inner with payload at level l.
func Wrap(l *Level, inner *Tensor, payload Payload) *Tensor {
	return &Tensor{
		s:       inner.s,
		level:   l,
		inner:   inner,
		payload: payload,
		epoch:   inner.s.stack.NextID(),
	}
}

// live strips wrappers whose level has been popped.
func (t *Tensor) live() *Tensor {
	for t.level != nil && !t.level.alive {
		t = t.inner
	}
	return t
}

// below strips dead wrappers and wrappers at or above ceiling.
func (t *Tensor) below(ceiling int) *Tensor {
	t = t.live()
	for t.level != nil && t.level.ID >= ceiling {
		t = t.inner.live()
	}
	return t
}

func (t *Tensor) base() *Tensor {
	for t.level != nil {
		t = t.inner
	}
	return t
}

// Session returns the session the tensor belongs to.
func (t *Tensor) Session() *Session {
	return t.s
}

// Level returns the live level the outermost annotation belongs to, or nil
// for an unwrapped value.
func (t *Tensor) Level() *Level {
	return t.live().level
}

// IsWrapped reports whether any live level annotates the tensor.
func (t *Tensor) IsWrapped() bool {
	return t.live().level != nil
}

// Unwrap returns the inner value and payload when t is wrapped at l.
// Otherwise it returns t (with dead wrappers stripped), nil and false.
func (t *Tensor) Unwrap(l *Level) (*Tensor, Payload, bool) {
	t = t.live()
	if t.level == l && l != nil {
		return t.inner, t.payload, true
	}
	return t, nil, false
}

// Payload returns the payload of the outermost live annotation.
func (t *Tensor) Payload() Payload {
	return t.live().payload
}

// SetPayload replaces the payload of a tensor wrapped at l. In-place
// primitives use it to move the tensor to a new graph position.
func (t *Tensor) SetPayload(l *Level, p Payload) {
	t = t.live()
	if t.level != l {
		panic(fmt.Errorf("%w: SetPayload on a tensor not wrapped at %v", ErrTransformMisuse, l))
	}
	t.payload = p
}

// Promote turns t into a wrapper at l in place: t's current contents move
// into a fresh inner value. Holders of t observe the wrapped value from now
// on, which is what an in-place write that starts tracking needs.
func (t *Tensor) Promote(l *Level, p Payload) {
	inner := *t
	t.raw = nil
	t.level = l
	t.inner = &inner
	t.payload = p
}

// CreatedBefore reports whether the tensor existed before l was pushed,
// i.e. whether l captured it from an enclosing scope.
func (t *Tensor) CreatedBefore(l *Level) bool {
	return t.epoch <= l.ID
}

// Shape returns the logical shape at the outermost live level.
func (t *Tensor) Shape() tensor.Shape {
	t = t.live()
	if t.level == nil {
		return t.raw.Shape()
	}
	return t.payload.LogicalShape(t.inner.Shape())
}

// Dim returns the logical rank.
func (t *Tensor) Dim() int {
	return len(t.Shape())
}

// NumElements returns the number of logical elements.
func (t *Tensor) NumElements() int {
	return t.Shape().NumElements()
}

// Raw returns the underlying RawTensor of an unwrapped value. It panics
// with ErrTransformMisuse while a live level still owns the value.
func (t *Tensor) Raw() *tensor.RawTensor {
	t = t.live()
	if t.level != nil {
		panic(fmt.Errorf("%w: cannot access the data of a tensor owned by %v", ErrTransformMisuse, t.level))
	}
	return t.raw
}

// Values returns a row-major copy of an unwrapped value's elements.
func (t *Tensor) Values() []float64 {
	return t.Raw().Values()
}

// Backward is the host autodiff entry point. Transforms compute gradients
// through their own levels, so calling it while any level is active is a
// misuse.
func (t *Tensor) Backward() error {
	if depth := t.s.stack.Depth(); depth > 0 {
		return fmt.Errorf("%w: backward() called inside a transform (%d active levels); "+
			"use the grad or vjp transforms instead", ErrTransformMisuse, depth)
	}
	return ErrNoGrad
}

// String renders the tensor with its annotations, outermost first.
func (t *Tensor) String() string {
	t = t.live()
	if t.level == nil {
		return t.raw.String()
	}
	return fmt.Sprintf("Wrapped(level=%d, %v, %s)", t.level.ID, t.payload, t.inner)
}
