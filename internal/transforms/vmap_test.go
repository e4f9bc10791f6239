package transforms

import (
	"testing"

	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
	"github.com/born-ml/xform/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVMap_Elementwise(t *testing.T) {
	s := newSession()
	x := s.MustFromSlice([]float64{1, 2, 3}, 3)
	y := s.MustFromSlice([]float64{4, 5, 6}, 3)

	out, err := VMap(mulF)(s, x, y)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 10, 18}, asTensor(t, out, 3).Values())
	requireClean(t, s)
}

func TestVMap_InDims(t *testing.T) {
	s := newSession()
	x := s.Arange(6).Reshape(2, 3)

	t.Run("unmapped input", func(t *testing.T) {
		out, err := VMap(mulF, InDims(pytree.Tuple{0, nil}))(s, s.Arange(3), s.Scalar(2))
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 2, 4}, asTensor(t, out, 3).Values())
	})

	t.Run("inner dim", func(t *testing.T) {
		sum := func(_ *dispatch.Session, args ...any) (any, error) { return arg(args, 0).Sum(), nil }
		out, err := VMap(sum, InDims(1))(s, x)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 5, 7}, asTensor(t, out, 3).Values())

		out, err = VMap(sum, InDims(-1))(s, x)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 5, 7}, asTensor(t, out, 3).Values())
	})

	t.Run("pytree input", func(t *testing.T) {
		f := func(_ *dispatch.Session, args ...any) (any, error) {
			d := args[0].(pytree.Dict)
			return d["a"].(*dispatch.Tensor).Add(d["b"].(*dispatch.Tensor)), nil
		}
		out, err := VMap(f, InDims(pytree.Tuple{pytree.Dict{"a": 0, "b": 1}}))(s,
			pytree.Dict{"a": x, "b": x.Transpose(0, 1)})
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 2, 4, 6, 8, 10}, asTensor(t, out, 2, 3).Values())
	})

	t.Run("constant arguments", func(t *testing.T) {
		f := func(_ *dispatch.Session, args ...any) (any, error) {
			return arg(args, 0).MulScalar(args[1].(float64)), nil
		}
		out, err := VMap(f, InDims(pytree.Tuple{0, nil}))(s, s.Arange(3), 3.0)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 3, 6}, asTensor(t, out, 3).Values())
	})
}

func TestVMap_OutDims(t *testing.T) {
	s := newSession()
	x := s.Arange(6).Reshape(2, 3)

	t.Run("moved batch dim shares storage", func(t *testing.T) {
		out, err := VMap(identity, OutDims(1))(s, x)
		require.NoError(t, err)
		y := asTensor(t, out, 3, 2)
		assert.Equal(t, []float64{0, 3, 1, 4, 2, 5}, y.Values())
		assert.True(t, y.Raw().SameStorage(x.Raw()))
	})

	t.Run("unbatched output is expanded", func(t *testing.T) {
		f := func(s *dispatch.Session, _ ...any) (any, error) { return s.Ones(2), nil }
		out, err := VMap(f)(s, s.Arange(3))
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, asTensor(t, out, 3, 2).Values())
	})

	t.Run("per output", func(t *testing.T) {
		f := func(_ *dispatch.Session, args ...any) (any, error) {
			return pytree.Tuple{args[0], "label"}, nil
		}
		out, err := VMap(f, OutDims(pytree.Tuple{-1, nil}))(s, x)
		require.NoError(t, err)
		tup := asTuple(t, out, 2)
		assert.Equal(t, []float64{0, 3, 1, 4, 2, 5}, asTensor(t, tup[0], 3, 2).Values())
		assert.Equal(t, "label", tup[1])
	})

	t.Run("unbatched output with nil out_dim", func(t *testing.T) {
		f := func(s *dispatch.Session, _ ...any) (any, error) { return s.Ones(2), nil }
		out, err := VMap(f, OutDims(nil))(s, x)
		require.NoError(t, err)
		asTensor(t, out, 2)
	})
}

func TestVMap_Nested(t *testing.T) {
	s := newSession()
	x := s.Arange(6).Reshape(2, 3)
	y := s.Arange(3)

	out, err := VMap(VMap(mulF), InDims(pytree.Tuple{0, nil}))(s, x, y)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 4, 0, 4, 10}, asTensor(t, out, 2, 3).Values())

	out, err = VMap(VMap(mulF, InDims(pytree.Tuple{nil, 0})), InDims(pytree.Tuple{0, nil}))(s, y, y)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 1, 2, 0, 2, 4}, asTensor(t, out, 3, 3).Values())
	requireClean(t, s)
}

func TestVMap_InputErrors(t *testing.T) {
	s := newSession()
	x := s.Ones(3)

	for _, tc := range []struct {
		name string
		opts []Option
		args []any
		msg  string
	}{
		{"no inputs", nil, nil, "got no inputs"},
		{"bad in_dims type", []Option{InDims("0")}, []any{x}, "expected `in_dims` to be int"},
		{"in_dims structure", []Option{InDims(pytree.Tuple{0, 0})}, []any{x}, "not compatible"},
		{"in_dim out of range", []Option{InDims(1)}, []any{x}, "dimensionality 1"},
		{"non-tensor input", []Option{InDims(pytree.Tuple{0, 0})}, []any{x, 2.0}, "non-Tensor"},
		{"nothing mapped", []Option{InDims(pytree.Tuple{nil})}, []any{x}, "at least one input"},
		{"size mismatch", nil, []any{x, s.Ones(2)}, "same size"},
		{"bad randomness", []Option{Randomness("sometimes")}, []any{x}, "sometimes"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VMap(identity, tc.opts...)(s, tc.args...)
			require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
			require.ErrorContains(t, err, tc.msg)
			requireClean(t, s)
		})
	}
}

func TestVMap_OutputErrors(t *testing.T) {
	s := newSession()
	x := s.Ones(3)

	_, err := VMap(identity, OutDims(nil))(s, x)
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	require.ErrorContains(t, err, "can not return a BatchedTensor")

	_, err = VMap(identity, OutDims("0"))(s, x)
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)

	_, err = VMap(identity, OutDims(pytree.Tuple{0, 0}))(s, x)
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	require.ErrorContains(t, err, "not compatible")

	_, err = VMap(identity, OutDims(2))(s, x)
	require.ErrorIs(t, err, tensor.ErrDimOutOfRange)

	constant := func(_ *dispatch.Session, _ ...any) (any, error) { return 3.0, nil }
	_, err = VMap(constant)(s, x)
	require.ErrorIs(t, err, dispatch.ErrUnsupportedReturnType)
	requireClean(t, s)
}

func TestVMap_BackwardInsideIsMisuse(t *testing.T) {
	s := newSession()
	f := func(_ *dispatch.Session, args ...any) (any, error) {
		return nil, arg(args, 0).Sum().Backward()
	}
	_, err := VMap(f)(s, s.Ones(3))
	require.ErrorIs(t, err, dispatch.ErrTransformMisuse)
	requireClean(t, s)

	require.ErrorIs(t, s.Ones(3).Sum().Backward(), dispatch.ErrNoGrad)
}

func TestVMap_Randomness(t *testing.T) {
	s := newSession()
	x := s.Ones(3)
	draw := func(s *dispatch.Session, _ ...any) (any, error) { return s.Randn(2), nil }

	_, err := VMap(draw)(s, x)
	require.ErrorIs(t, err, dispatch.ErrRandomness)
	requireClean(t, s)

	out, err := VMap(draw, Randomness("same"))(s, x)
	require.NoError(t, err)
	v := asTensor(t, out, 3, 2).Values()
	assert.Equal(t, v[:2], v[2:4])
	assert.Equal(t, v[:2], v[4:])

	out, err = VMap(draw, Randomness("different"))(s, x)
	require.NoError(t, err)
	v = asTensor(t, out, 3, 2).Values()
	assert.NotEqual(t, v[:2], v[2:4])

	cfg := dispatch.DefaultConfig()
	cfg.Randomness = "different"
	out, err = VMap(draw)(newSession(dispatch.WithConfig(cfg)), x)
	require.NoError(t, err)
	asTensor(t, out, 3, 2)
}
