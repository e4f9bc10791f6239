package autodiff

import (
	"math"
	"testing"

	"github.com/born-ml/xform/internal/backend/cpu"
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catch(fn func()) (err error) {
	defer dispatch.Recover(&err)
	fn()
	return nil
}

func pushReverse(s *dispatch.Session) (*dispatch.Level, *Reverse) {
	r := NewReverse()
	l := s.Push(dispatch.Gradient, dispatch.Meta{Mode: dispatch.Reverse, RecordsGrad: true, Interp: r})
	return l, r
}

func pushForward(s *dispatch.Session) *dispatch.Level {
	return s.Push(dispatch.Gradient, dispatch.Meta{Mode: dispatch.Forward, Interp: NewForward()})
}

// gradOf differentiates out with respect to x at l with a ones seed, then
// pops l.
func gradOf(t *testing.T, s *dispatch.Session, l *dispatch.Level, r *Reverse, out, x *dispatch.Tensor) *dispatch.Tensor {
	t.Helper()
	outInner, outNode := NodeOf(out, l)
	_, xNode := NodeOf(x, l)
	require.NotNil(t, outNode, "output is not tracked")
	require.NotNil(t, xNode, "input is not tracked")
	require.NoError(t, s.Pop(l))
	return r.Backward(map[*Node]*dispatch.Tensor{outNode: s.OnesLike(outInner)})[xNode]
}

func TestReverse_Sin(t *testing.T) {
	s := dispatch.NewSession(cpu.New())
	x := s.Scalar(0.5)
	l, r := pushReverse(s)
	tx := r.Track(l, x)
	y := tx.Sin()

	g := gradOf(t, s, l, r, y, tx)
	assert.InDelta(t, math.Cos(0.5), g.Item(), 1e-12)
	assert.InDelta(t, math.Sin(0.5), y.Item(), 1e-12, "escaped values read as plain tensors")
	assert.False(t, y.IsWrapped())
}

func TestReverse_Accumulation(t *testing.T) {
	s := dispatch.NewSession(cpu.New())
	x := s.MustFromSlice([]float64{1, 2, 3}, 3)
	l, r := pushReverse(s)
	tx := r.Track(l, x)
	y := tx.Mul(tx).Add(tx).Sum()
	assert.Equal(t, 3, r.Tape().NumOps())

	g := gradOf(t, s, l, r, y, tx)
	assert.Equal(t, []float64{3, 5, 7}, g.Values())

	r.Tape().Clear()
	assert.Zero(t, r.Tape().NumOps())
}

func TestReverse_SecondOrder(t *testing.T) {
	s := dispatch.NewSession(cpu.New())
	x := s.Scalar(0.7)

	l1, r1 := pushReverse(s)
	x1 := r1.Track(l1, x)
	l2, r2 := pushReverse(s)
	x2 := r2.Track(l2, x1)

	g := gradOf(t, s, l2, r2, x2.Sin(), x2)
	gg := gradOf(t, s, l1, r1, g, x1)
	assert.InDelta(t, -math.Sin(0.7), gg.Item(), 1e-12)
	assert.Zero(t, s.LevelStack().Depth())
}

func TestReverse_UnrelatedInput(t *testing.T) {
	s := dispatch.NewSession(cpu.New())
	l, r := pushReverse(s)
	a := r.Track(l, s.Ones(2))
	b := r.Track(l, s.Ones(2))
	y := a.Exp().Sum()
	_, bNode := NodeOf(b, l)
	yInner, yNode := NodeOf(y, l)
	require.NoError(t, s.Pop(l))

	grads := r.Backward(map[*Node]*dispatch.Tensor{yNode: s.OnesLike(yInner)})
	assert.NotContains(t, grads, bNode)
}

func TestReverse_NoGrad(t *testing.T) {
	s := dispatch.NewSession(cpu.New())
	l, r := pushReverse(s)
	tx := r.Track(l, s.Ones(2))

	var y *dispatch.Tensor
	require.NoError(t, s.NoGrad(func() error {
		y = tx.Sin()
		return nil
	}))
	_, node := NodeOf(y, l)
	assert.Nil(t, node)
	assert.True(t, l.RecordsGrad, "recording resumes after NoGrad")

	_, node = NodeOf(s.RandnLike(tx), l)
	assert.Nil(t, node, "random values are constants")
	require.NoError(t, s.Pop(l))
}

func TestReverse_InPlace(t *testing.T) {
	s := dispatch.NewSession(cpu.New())

	t.Run("CapturedMutation", func(t *testing.T) {
		captured := s.Zeros(2)
		l, r := pushReverse(s)
		tx := r.Track(l, s.Ones(2))
		err := catch(func() { captured.AddInPlace(tx) })
		require.NoError(t, s.Pop(l))

		assert.ErrorIs(t, err, dispatch.ErrCapturedMutation)
		assert.Contains(t, err.Error(), "mutate a captured Tensor")
		assert.Equal(t, []float64{0, 0}, captured.Values(), "the captured tensor is left untouched")
	})

	t.Run("FreshBuffer", func(t *testing.T) {
		l, r := pushReverse(s)
		tx := r.Track(l, s.MustFromSlice([]float64{1, 2}, 2))
		buf := s.Zeros(2)
		buf.CopyFrom(tx)
		assert.True(t, buf.IsWrapped(), "the buffer becomes tracked")

		g := gradOf(t, s, l, r, buf.Square().Sum(), tx)
		assert.Equal(t, []float64{2, 4}, g.Values())
	})

	t.Run("TrackedDestination", func(t *testing.T) {
		l, r := pushReverse(s)
		tx := r.Track(l, s.MustFromSlice([]float64{1, 2}, 2))
		y := tx.MulScalar(2)
		y.AddInPlace(tx)

		g := gradOf(t, s, l, r, y.Sum(), tx)
		assert.Equal(t, []float64{3, 3}, g.Values())
	})

	t.Run("OverwrittenDestination", func(t *testing.T) {
		l, r := pushReverse(s)
		tx := r.Track(l, s.MustFromSlice([]float64{1, 2}, 2))
		y := tx.MulScalar(2)
		y.CopyFrom(s.Ones(2))
		_, node := NodeOf(y, l)
		assert.NotNil(t, node)
		out := y.Add(tx).Sum()

		g := gradOf(t, s, l, r, out, tx)
		assert.Equal(t, []float64{1, 1}, g.Values())
	})
}

func TestForward_Rules(t *testing.T) {
	s := dispatch.NewSession(cpu.New())

	t.Run("Sin", func(t *testing.T) {
		l := pushForward(s)
		x := Dual(l, s.Scalar(0.5), s.Scalar(2))
		primal, tangent := TangentOf(x.Sin(), l)
		require.NoError(t, s.Pop(l))

		assert.InDelta(t, math.Sin(0.5), primal.Item(), 1e-12)
		assert.InDelta(t, 2*math.Cos(0.5), tangent.Item(), 1e-12)
	})

	t.Run("ConstantOperand", func(t *testing.T) {
		l := pushForward(s)
		x := Dual(l, s.MustFromSlice([]float64{1, 2}, 2), s.Ones(2))
		c := s.MustFromSlice([]float64{3, 4}, 2)
		_, tangent := TangentOf(x.Mul(c).Add(c), l)
		require.NoError(t, s.Pop(l))
		assert.Equal(t, []float64{3, 4}, tangent.Values())
	})

	t.Run("UntrackedOutput", func(t *testing.T) {
		l := pushForward(s)
		out := s.Ones(2).Sin()
		_, tangent := TangentOf(out, l)
		require.NoError(t, s.Pop(l))
		assert.Nil(t, tangent)
	})

	t.Run("NoGradDoesNotApply", func(t *testing.T) {
		l := pushForward(s)
		x := Dual(l, s.Scalar(1), s.Scalar(1))
		var y *dispatch.Tensor
		require.NoError(t, s.NoGrad(func() error {
			y = x.MulScalar(3)
			return nil
		}))
		_, tangent := TangentOf(y, l)
		require.NoError(t, s.Pop(l))
		assert.Equal(t, 3.0, tangent.Item())
	})
}

func TestForward_InPlace(t *testing.T) {
	s := dispatch.NewSession(cpu.New())

	t.Run("CapturedMutation", func(t *testing.T) {
		captured := s.Zeros(2)
		l := pushForward(s)
		x := Dual(l, s.Ones(2), s.Ones(2))
		err := catch(func() { captured.CopyFrom(x) })
		require.NoError(t, s.Pop(l))
		assert.ErrorIs(t, err, dispatch.ErrCapturedMutation)
	})

	t.Run("FreshBuffer", func(t *testing.T) {
		l := pushForward(s)
		x := Dual(l, s.Ones(2), s.MustFromSlice([]float64{5, 6}, 2))
		buf := s.Zeros(2)
		buf.AddInPlace(x)
		_, tangent := TangentOf(buf, l)
		require.NoError(t, s.Pop(l))
		assert.Equal(t, []float64{5, 6}, tangent.Values())
	})

	t.Run("RandomOverwrite", func(t *testing.T) {
		l := pushForward(s)
		x := Dual(l, s.Zeros(2), s.Ones(2))
		x.NormalInPlace()
		_, tangent := TangentOf(x, l)
		require.NoError(t, s.Pop(l))
		assert.Nil(t, tangent)
	})
}

func TestPayloadStrings(t *testing.T) {
	assert.Equal(t, "node=3", (&Node{id: 3}).String())
	assert.Equal(t, "tangent=zero", Tangent{}.String())
}
