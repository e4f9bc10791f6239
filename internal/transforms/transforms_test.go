package transforms

import (
	"math"
	"testing"

	"github.com/born-ml/xform/internal/backend/cpu"
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func newSession(opts ...dispatch.Option) *dispatch.Session {
	return dispatch.NewSession(cpu.New(), opts...)
}

func arg(args []any, i int) *dispatch.Tensor {
	return args[i].(*dispatch.Tensor)
}

func sinF(_ *dispatch.Session, args ...any) (any, error) {
	return arg(args, 0).Sin(), nil
}

func mulF(_ *dispatch.Session, args ...any) (any, error) {
	return arg(args, 0).Mul(arg(args, 1)), nil
}

func identity(_ *dispatch.Session, args ...any) (any, error) {
	return args[0], nil
}

// asTensor asserts v is an unwrapped tensor of the given shape.
func asTensor(t *testing.T, v any, shape ...int) *dispatch.Tensor {
	t.Helper()
	x, ok := v.(*dispatch.Tensor)
	require.True(t, ok, "expected a tensor, got %T", v)
	require.False(t, x.IsWrapped(), "expected an unwrapped tensor, got %v", x)
	require.True(t, x.Shape().Equal(shape), "shape %v, want %v", x.Shape(), shape)
	return x
}

func asTuple(t *testing.T, v any, n int) pytree.Tuple {
	t.Helper()
	tup, ok := v.(pytree.Tuple)
	require.True(t, ok, "expected a tuple, got %T", v)
	require.Len(t, tup, n)
	return tup
}

func mapFloats(xs []float64, fn func(float64) float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = fn(x)
	}
	return out
}

// diag returns the row-major n x n matrix with d on its diagonal.
func diag(d []float64) []float64 {
	n := len(d)
	out := make([]float64, n*n)
	for i, v := range d {
		out[i*n+i] = v
	}
	return out
}

// requireClean asserts that every level was popped.
func requireClean(t *testing.T, s *dispatch.Session) {
	t.Helper()
	require.Equal(t, 0, s.LevelStack().Depth())
}

func TestNormalizeArgnums(t *testing.T) {
	nums, tuple, err := normalizeArgnums(1, 2)
	require.NoError(t, err)
	require.Equal(t, []int{1}, nums)
	require.False(t, tuple)

	nums, tuple, err = normalizeArgnums(pytree.Tuple{0, -1}, 3)
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, nums)
	require.True(t, tuple)

	nums, tuple, err = normalizeArgnums([]int{1}, 2)
	require.NoError(t, err)
	require.Equal(t, []int{1}, nums)
	require.True(t, tuple)

	for _, tc := range []struct {
		argnums any
		msg     string
	}{
		{"0", "argnums must be int"},
		{pytree.Tuple{0, 1.5}, "each argnum must be int"},
		{[]int{}, "non-empty"},
		{2, "only 2 positional inputs"},
		{-3, "only 2 positional inputs"},
		{[]int{0, -2}, "unique"},
	} {
		_, _, err := normalizeArgnums(tc.argnums, 2)
		require.ErrorIs(t, err, dispatch.ErrInvalidArgument, "argnums=%v", tc.argnums)
		require.ErrorContains(t, err, tc.msg)
	}
}

func TestSplitAux(t *testing.T) {
	out, aux, err := splitAux(pytree.Tuple{1, 2}, true, "api")
	require.NoError(t, err)
	require.Equal(t, 1, out)
	require.Equal(t, 2, aux)

	out, aux, err = splitAux(3, false, "api")
	require.NoError(t, err)
	require.Equal(t, 3, out)
	require.Nil(t, aux)

	_, _, err = splitAux(3, true, "api")
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	require.ErrorContains(t, err, "(output, aux)")
}

func TestComposition_PerSampleGrads(t *testing.T) {
	s := newSession()
	loss := func(_ *dispatch.Session, args ...any) (any, error) {
		w, x := arg(args, 0), arg(args, 1)
		return w.Mul(x).Sin().Sum(), nil
	}
	w := s.MustFromSlice([]float64{0.5, -1}, 2)
	xs := s.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, 3, 2)

	out, err := VMap(Grad(loss), InDims(pytree.Tuple{nil, 0}))(s, w, xs)
	require.NoError(t, err)
	g := asTensor(t, out, 3, 2)

	want := make([]float64, 6)
	wv, xv := w.Values(), xs.Values()
	for i := range want {
		want[i] = xv[i] * math.Cos(wv[i%2]*xv[i])
	}
	require.InDeltaSlice(t, want, g.Values(), tol)
	requireClean(t, s)
}

func TestComposition_GradOfVMap(t *testing.T) {
	s := newSession()
	f := func(s *dispatch.Session, args ...any) (any, error) {
		out, err := VMap(sinF)(s, args...)
		if err != nil {
			return nil, err
		}
		return out.(*dispatch.Tensor).Sum(), nil
	}
	x := s.MustFromSlice([]float64{0.1, 0.2, 0.3}, 3)
	g, err := Grad(f)(s, x)
	require.NoError(t, err)
	require.InDeltaSlice(t, mapFloats(x.Values(), math.Cos), asTensor(t, g, 3).Values(), tol)
}

func TestComposition_ErrorsUnwindEveryLevel(t *testing.T) {
	s := newSession()
	f := func(_ *dispatch.Session, args ...any) (any, error) {
		return arg(args, 0).Sum(99), nil
	}
	_, err := VMap(Grad(VMap(f)))(s, s.Ones(2, 3, 4))
	require.Error(t, err)
	requireClean(t, s)
}
