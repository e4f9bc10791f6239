package dispatch

import (
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/born-ml/xform/internal/backend/cpu"
	"github.com/born-ml/xform/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return NewSession(cpu.New())
}

// tag is a payload that leaves the logical shape unchanged.
type tag struct{}

func (tag) LogicalShape(inner tensor.Shape) tensor.Shape { return inner }

// recorder forwards every call below its level and remembers what it saw.
type recorder struct {
	calls []string
}

func (r *recorder) Process(s *Session, l *Level, p *Primitive, args []*Tensor, params Params) *Tensor {
	r.calls = append(r.calls, fmt.Sprintf("%d:%s", l.ID, p.Name))
	inner := make([]*Tensor, len(args))
	for i, a := range args {
		inner[i], _, _ = a.Unwrap(l)
	}
	out := s.CallBelow(l, p, inner, params)
	if p.InPlace || p.ScalarResult {
		return out
	}
	return Wrap(l, out, tag{})
}

func TestSession_UnwrappedCall(t *testing.T) {
	s := newTestSession()
	x := s.MustFromSlice([]float64{1, 2, 3}, 3)
	y := x.Add(x).MulScalar(2)
	assert.Equal(t, []float64{4, 8, 12}, y.Values())
	assert.False(t, y.IsWrapped())
}

func TestSession_HighestLevelOwnsCall(t *testing.T) {
	s := newTestSession()
	outer, inner := &recorder{}, &recorder{}
	l1 := s.Push(Gradient, Meta{Interp: outer})
	l2 := s.Push(Gradient, Meta{Interp: inner})

	x := Wrap(l1, s.MustFromSlice([]float64{1, 2}, 2), tag{})
	y := Wrap(l2, s.MustFromSlice([]float64{3, 4}, 2), tag{})
	z := x.Mul(y)

	assert.Equal(t, []string{"2:mul"}, inner.calls)
	assert.Equal(t, []string{"1:mul"}, outer.calls, "the inner level forwards to the outer one")
	assert.Same(t, l2, z.Level())

	require.NoError(t, s.Pop(l2))
	assert.Same(t, l1, z.Level(), "a dead wrapper is transparent")
	require.NoError(t, s.Pop(l1))
	assert.Equal(t, []float64{3, 8}, z.Values())
}

func TestSession_DeadWrapperIsSkipped(t *testing.T) {
	s := newTestSession()
	rec := &recorder{}
	l := s.Push(Gradient, Meta{Interp: rec})
	x := Wrap(l, s.MustFromSlice([]float64{1}, 1), tag{})
	require.NoError(t, s.Pop(l))

	y := x.Neg()
	assert.Empty(t, rec.calls)
	assert.Equal(t, []float64{-1}, y.Values())
}

func TestSession_RandomOwnedByBatchedLevel(t *testing.T) {
	s := newTestSession()
	rec := &recorder{}
	l := s.Push(Batched, Meta{Interp: rec})
	defer func() { _ = s.Pop(l) }()

	s.Randn(2)
	s.Zeros(2)
	assert.Equal(t, []string{"1:randn"}, rec.calls, "creation without tensor args is not intercepted")
}

func TestTensor_RawOwnedByLiveLevel(t *testing.T) {
	s := newTestSession()
	l := s.Push(Gradient, Meta{Interp: &recorder{}})
	x := Wrap(l, s.Scalar(1), tag{})

	assert.PanicsWithError(t, fmt.Sprintf("%v: cannot access the data of a tensor owned by %v", ErrTransformMisuse, l), func() {
		x.Raw()
	})
	require.NoError(t, s.Pop(l))
	assert.Equal(t, []float64{1}, x.Values())
}

func TestTensor_BackwardGuard(t *testing.T) {
	s := newTestSession()
	x := s.Scalar(1)
	assert.ErrorIs(t, x.Backward(), ErrNoGrad)

	l := s.Push(Batched, Meta{Interp: &recorder{}})
	err := x.Backward()
	assert.ErrorIs(t, err, ErrTransformMisuse)
	assert.Contains(t, err.Error(), "backward() called inside a transform")
	require.NoError(t, s.Pop(l))
}

func TestTensor_Promote(t *testing.T) {
	s := newTestSession()
	l := s.Push(Gradient, Meta{Interp: &recorder{}})
	captured := s.Scalar(1)
	require.NoError(t, s.Pop(l))

	l = s.Push(Gradient, Meta{Interp: &recorder{}})
	fresh := s.Scalar(2)
	assert.True(t, captured.CreatedBefore(l))
	assert.False(t, fresh.CreatedBefore(l))

	fresh.Promote(l, tag{})
	assert.Same(t, l, fresh.Level())
	inner, _, ok := fresh.Unwrap(l)
	require.True(t, ok)
	assert.Equal(t, []float64{2}, inner.Values())
	require.NoError(t, s.Pop(l))
}

func TestSession_NoGrad(t *testing.T) {
	s := newTestSession()
	rev := s.Push(Gradient, Meta{Mode: Reverse, RecordsGrad: true, Interp: &recorder{}})
	fwd := s.Push(Gradient, Meta{Mode: Forward, RecordsGrad: true, Interp: &recorder{}})

	var inside *Level
	err := s.NoGrad(func() error {
		assert.False(t, rev.RecordsGrad)
		assert.True(t, fwd.RecordsGrad, "forward levels keep recording")
		inside = s.Push(Gradient, Meta{Mode: Reverse, RecordsGrad: true, Interp: &recorder{}})
		assert.True(t, inside.RecordsGrad, "levels pushed inside no_grad record")
		return s.Pop(inside)
	})
	require.NoError(t, err)
	assert.True(t, rev.RecordsGrad)

	boom := errors.New("boom")
	assert.ErrorIs(t, s.NoGrad(func() error { return boom }), boom)
	assert.True(t, rev.RecordsGrad)

	require.NoError(t, s.Pop(fwd))
	require.NoError(t, s.Pop(rev))
}

func TestRecover(t *testing.T) {
	run := func(fn func()) (err error) {
		defer Recover(&err)
		fn()
		return nil
	}

	err := run(func() { panic(fmt.Errorf("%w: bad", ErrInvalidArgument)) })
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Panics(t, func() {
		_ = run(func() {
			var m map[string]int
			m["x"] = 1
		})
	})

	var re runtime.Error
	func() {
		defer func() {
			re, _ = recover().(runtime.Error)
		}()
		_ = run(func() {
			var s []int
			_ = s[3]
		})
	}()
	assert.NotNil(t, re, "runtime errors are re-raised")

	assert.Panics(t, func() {
		_ = run(func() { panic("not an error") })
	})
}
