package transforms

import (
	"math"
	"testing"

	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/pytree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumOfProduct(_ *dispatch.Session, args ...any) (any, error) {
	return arg(args, 0).Mul(arg(args, 1)).Sum(), nil
}

func TestGrad_Sin(t *testing.T) {
	s := newSession()
	x := s.Scalar(0.5)

	g, err := Grad(sinF)(s, x)
	require.NoError(t, err)
	assert.InDelta(t, math.Cos(0.5), asTensor(t, g).Item(), tol)

	gg, err := Grad(Grad(sinF))(s, x)
	require.NoError(t, err)
	assert.InDelta(t, -math.Sin(0.5), asTensor(t, gg).Item(), tol)

	ggg, err := Grad(Grad(Grad(sinF)))(s, x)
	require.NoError(t, err)
	assert.InDelta(t, -math.Cos(0.5), asTensor(t, ggg).Item(), tol)
	requireClean(t, s)
}

func TestGrad_Argnums(t *testing.T) {
	s := newSession()
	x := s.MustFromSlice([]float64{1, 2, 3}, 3)
	y := s.MustFromSlice([]float64{4, 5, 6}, 3)

	g, err := Grad(sumOfProduct, Argnums(1))(s, x, y)
	require.NoError(t, err)
	assert.Equal(t, x.Values(), asTensor(t, g, 3).Values())

	out, err := Grad(sumOfProduct, Argnums(pytree.Tuple{0, 1}))(s, x, y)
	require.NoError(t, err)
	tup := asTuple(t, out, 2)
	assert.Equal(t, y.Values(), asTensor(t, tup[0], 3).Values())
	assert.Equal(t, x.Values(), asTensor(t, tup[1], 3).Values())

	out, err = Grad(sumOfProduct, Argnums([]int{-1}))(s, x, y)
	require.NoError(t, err)
	assert.Equal(t, x.Values(), asTensor(t, asTuple(t, out, 1)[0], 3).Values())

	_, err = Grad(sumOfProduct, Argnums([]int{0, 0}))(s, x, y)
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	require.ErrorContains(t, err, "unique")
	requireClean(t, s)
}

func TestGrad_IndependentInput(t *testing.T) {
	s := newSession()
	f := func(_ *dispatch.Session, args ...any) (any, error) {
		return arg(args, 0).Sum(), nil
	}
	g, err := Grad(f, Argnums(1))(s, s.Ones(2), s.Ones(2, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, asTensor(t, g, 2, 2).Values())
}

func TestGrad_Pytrees(t *testing.T) {
	s := newSession()
	f := func(_ *dispatch.Session, args ...any) (any, error) {
		d := args[0].(pytree.Dict)
		pair := d["pair"].(pytree.Tuple)
		a, b := pair[0].(*dispatch.Tensor), pair[1].(*dispatch.Tensor)
		return a.Mul(b).Add(d["c"].(*dispatch.Tensor)).Sum(), nil
	}
	a := s.MustFromSlice([]float64{1, 2}, 2)
	b := s.MustFromSlice([]float64{3, 4}, 2)
	c := s.MustFromSlice([]float64{5, 6}, 2)

	out, err := Grad(f)(s, pytree.Dict{"pair": pytree.Tuple{a, b}, "c": c})
	require.NoError(t, err)
	d, ok := out.(pytree.Dict)
	require.True(t, ok, "got %T", out)
	pair := asTuple(t, d["pair"], 2)
	assert.Equal(t, b.Values(), asTensor(t, pair[0], 2).Values())
	assert.Equal(t, a.Values(), asTensor(t, pair[1], 2).Values())
	assert.Equal(t, []float64{1, 1}, asTensor(t, d["c"], 2).Values())
}

func TestGrad_AuxAndValue(t *testing.T) {
	s := newSession()
	x := s.MustFromSlice([]float64{0.1, 0.2}, 2)
	f := func(_ *dispatch.Session, args ...any) (any, error) {
		y := arg(args, 0).Sin()
		return pytree.Tuple{y.Sum(), y}, nil
	}

	out, err := Grad(f, HasAux(true))(s, x)
	require.NoError(t, err)
	tup := asTuple(t, out, 2)
	assert.InDeltaSlice(t, mapFloats(x.Values(), math.Cos), asTensor(t, tup[0], 2).Values(), tol)
	assert.InDeltaSlice(t, mapFloats(x.Values(), math.Sin), asTensor(t, tup[1], 2).Values(), tol)

	out, err = GradAndValue(f, HasAux(true))(s, x)
	require.NoError(t, err)
	tup = asTuple(t, out, 2)
	inner := asTuple(t, tup[1], 2)
	assert.InDelta(t, math.Sin(0.1)+math.Sin(0.2), asTensor(t, inner[0]).Item(), tol)
	asTensor(t, inner[1], 2)

	out, err = GradAndValue(sinF)(s, s.Scalar(1))
	require.NoError(t, err)
	tup = asTuple(t, out, 2)
	assert.InDelta(t, math.Cos(1), asTensor(t, tup[0]).Item(), tol)
	assert.InDelta(t, math.Sin(1), asTensor(t, tup[1]).Item(), tol)

	_, err = Grad(sinF, HasAux(true))(s, s.Scalar(1))
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	require.ErrorContains(t, err, "(output, aux)")
}

func TestGrad_Errors(t *testing.T) {
	s := newSession()

	_, err := Grad(sinF)(s, s.Ones(3))
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	require.ErrorContains(t, err, "scalar Tensor")

	constant := func(_ *dispatch.Session, _ ...any) (any, error) { return 1.0, nil }
	_, err = Grad(constant)(s, s.Ones(3))
	require.ErrorIs(t, err, dispatch.ErrUnsupportedReturnType)

	_, err = Grad(sinF)(s, 1.0)
	require.ErrorIs(t, err, dispatch.ErrUnsupportedReturnType)

	_, err = Grad(sinF, Argnums(3))(s, s.Scalar(1))
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	requireClean(t, s)
}

func TestGrad_CapturedMutation(t *testing.T) {
	s := newSession()
	captured := s.Zeros(2)
	f := func(_ *dispatch.Session, args ...any) (any, error) {
		captured.CopyFrom(arg(args, 0))
		return captured.Sum(), nil
	}
	_, err := Grad(f)(s, s.Ones(2))
	require.ErrorIs(t, err, dispatch.ErrCapturedMutation)
	assert.Equal(t, []float64{0, 0}, captured.Values())
	requireClean(t, s)

	fresh := func(s *dispatch.Session, args ...any) (any, error) {
		buf := s.Zeros(2)
		buf.AddInPlace(arg(args, 0).MulScalar(3))
		return buf.Sum(), nil
	}
	g, err := Grad(fresh)(s, s.Ones(2))
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3}, asTensor(t, g, 2).Values())
}

func TestVJP(t *testing.T) {
	s := newSession()
	x := s.MustFromSlice([]float64{0.1, 0.2, 0.3}, 3)

	out, fn, err := VJP(s, sinF, pytree.Tuple{x})
	require.NoError(t, err)
	assert.InDeltaSlice(t, mapFloats(x.Values(), math.Sin), asTensor(t, out, 3).Values(), tol)

	ct := s.MustFromSlice([]float64{1, 2, 3}, 3)
	grads, err := fn(s, ct)
	require.NoError(t, err)
	require.Len(t, grads, 1)
	want := []float64{math.Cos(0.1), 2 * math.Cos(0.2), 3 * math.Cos(0.3)}
	assert.InDeltaSlice(t, want, asTensor(t, grads[0], 3).Values(), tol)

	again, err := fn(s, ct)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, asTensor(t, again[0], 3).Values(), tol)
	requireClean(t, s)
}

func TestVJP_UnderVMap(t *testing.T) {
	s := newSession()
	x := s.MustFromSlice([]float64{0.1, 0.2, 0.3}, 3)
	_, fn, err := VJP(s, sinF, pytree.Tuple{x})
	require.NoError(t, err)

	rows := func(s *dispatch.Session, args ...any) (any, error) {
		grads, err := fn(s, args[0])
		if err != nil {
			return nil, err
		}
		return grads[0], nil
	}
	out, err := VMap(rows)(s, s.Eye(3))
	require.NoError(t, err)
	assert.InDeltaSlice(t, diag(mapFloats(x.Values(), math.Cos)), asTensor(t, out, 3, 3).Values(), tol)
}

func TestVJP_MultipleOutputs(t *testing.T) {
	s := newSession()
	x := s.MustFromSlice([]float64{1, 2}, 2)
	y := s.MustFromSlice([]float64{3, 4}, 2)
	f := func(_ *dispatch.Session, args ...any) (any, error) {
		a, b := arg(args, 0), arg(args, 1)
		return pytree.Tuple{a.Mul(b), a}, nil
	}

	out, fn, aux, err := VJPWithAux(s, func(s *dispatch.Session, args ...any) (any, error) {
		res, err := f(s, args...)
		return pytree.Tuple{res, arg(args, 1).MulScalar(2)}, err
	}, pytree.Tuple{x, y})
	require.NoError(t, err)
	asTuple(t, out, 2)
	assert.Equal(t, []float64{6, 8}, asTensor(t, aux, 2).Values())

	grads, err := fn(s, pytree.Tuple{s.Ones(2), s.Ones(2)})
	require.NoError(t, err)
	require.Len(t, grads, 2)
	assert.Equal(t, []float64{4, 5}, asTensor(t, grads[0], 2).Values())
	assert.Equal(t, []float64{1, 2}, asTensor(t, grads[1], 2).Values())

	_, err = fn(s, s.Ones(2))
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	require.ErrorContains(t, err, "pytree structure of cotangents")

	_, err = fn(s, pytree.Tuple{s.Ones(3), s.Ones(2)})
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	require.ErrorContains(t, err, "Mismatch in shape")

	_, err = fn(s, pytree.Tuple{1.0, s.Ones(2)})
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
}

func TestVJP_OutputErrors(t *testing.T) {
	s := newSession()
	constant := func(_ *dispatch.Session, _ ...any) (any, error) { return "out", nil }
	_, _, err := VJP(s, constant, pytree.Tuple{s.Ones(2)})
	require.ErrorIs(t, err, dispatch.ErrUnsupportedReturnType)

	_, _, err = VJP(s, sinF, pytree.Tuple{"x"})
	require.ErrorIs(t, err, dispatch.ErrUnsupportedReturnType)

	for _, tc := range []struct {
		name string
		out  any
		got  string
	}{
		{"empty tuple", pytree.Tuple{}, "()"},
		{"none", nil, "None"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := func(_ *dispatch.Session, _ ...any) (any, error) { return tc.out, nil }
			_, _, err := VJP(s, f, pytree.Tuple{s.Ones(2, 3)})
			require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
			require.ErrorContains(t, err, "vjp(f, *primals): Expected f to be a function that has non-empty output")
			require.ErrorContains(t, err, "(got output = "+tc.got+")")
		})
	}
	requireClean(t, s)
}

func TestJVP(t *testing.T) {
	s := newSession()
	x := s.MustFromSlice([]float64{0.1, 0.2, 0.3}, 3)
	tangent := s.MustFromSlice([]float64{1, 2, 3}, 3)

	out, tangentOut, err := JVP(s, sinF, pytree.Tuple{x}, pytree.Tuple{tangent})
	require.NoError(t, err)
	assert.InDeltaSlice(t, mapFloats(x.Values(), math.Sin), asTensor(t, out, 3).Values(), tol)
	want := []float64{math.Cos(0.1), 2 * math.Cos(0.2), 3 * math.Cos(0.3)}
	assert.InDeltaSlice(t, want, asTensor(t, tangentOut, 3).Values(), tol)
	requireClean(t, s)
}

func TestJVP_IndependentOutput(t *testing.T) {
	s := newSession()
	f := func(s *dispatch.Session, args ...any) (any, error) {
		return pytree.Tuple{arg(args, 0).MulScalar(2), s.Ones(2)}, nil
	}
	primals, tangents := pytree.Tuple{s.Ones(3)}, pytree.Tuple{s.Ones(3)}

	_, tangentOut, err := JVP(s, f, primals, tangents)
	require.NoError(t, err)
	tup := asTuple(t, tangentOut, 2)
	assert.Equal(t, []float64{2, 2, 2}, asTensor(t, tup[0], 3).Values())
	assert.Equal(t, []float64{0, 0}, asTensor(t, tup[1], 2).Values())

	_, _, err = JVP(s, f, primals, tangents, Strict(true))
	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	require.ErrorContains(t, err, "strict=True")
	requireClean(t, s)
}

func TestJVP_WithAux(t *testing.T) {
	s := newSession()
	f := func(_ *dispatch.Session, args ...any) (any, error) {
		x := arg(args, 0)
		return pytree.Tuple{x.Mul(x), x.AddScalar(1)}, nil
	}
	x := s.MustFromSlice([]float64{1, 2}, 2)
	out, tangentOut, aux, err := JVPWithAux(s, f, pytree.Tuple{x}, pytree.Tuple{s.Ones(2)})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4}, asTensor(t, out, 2).Values())
	assert.Equal(t, []float64{2, 4}, asTensor(t, tangentOut, 2).Values())
	assert.Equal(t, []float64{2, 3}, asTensor(t, aux, 2).Values())
}

func TestJVP_EmptyOutput(t *testing.T) {
	s := newSession()
	x := s.Ones(2, 3)
	for _, out := range []any{pytree.Tuple{}, nil} {
		f := func(_ *dispatch.Session, _ ...any) (any, error) { return out, nil }
		_, _, err := JVP(s, f, pytree.Tuple{x}, pytree.Tuple{x})
		require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
		require.ErrorContains(t, err, "jvp(f, primals, tangents): Expected f to be a function that has non-empty output")

		_, _, _, err = JVPWithAux(s, func(_ *dispatch.Session, _ ...any) (any, error) {
			return pytree.Tuple{out, x}, nil
		}, pytree.Tuple{x}, pytree.Tuple{x})
		require.ErrorContains(t, err, "non-empty output")
	}
	requireClean(t, s)
}

func TestJVP_InputErrors(t *testing.T) {
	s := newSession()
	x := s.Ones(2)
	for _, tc := range []struct {
		name              string
		primals, tangents any
		msg               string
	}{
		{"primals not a tuple", x, pytree.Tuple{x}, "Expected primals to be a tuple"},
		{"tangents not a tuple", pytree.Tuple{x}, x, "Expected tangents to be a tuple"},
		{"structure", pytree.Tuple{x}, pytree.Tuple{x, x}, "same python structure"},
		{"empty", pytree.Tuple{}, pytree.Tuple{}, "at least one Tensor"},
		{"non-tensor primal", pytree.Tuple{1.0}, pytree.Tuple{x}, "primals to only contain Tensors"},
		{"non-tensor tangent", pytree.Tuple{x}, pytree.Tuple{1.0}, "tangents to only contain Tensors"},
		{"shape", pytree.Tuple{x}, pytree.Tuple{s.Ones(3)}, "same shape"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := JVP(s, sinF, tc.primals, tc.tangents)
			require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
			require.ErrorContains(t, err, tc.msg)
		})
	}
	requireClean(t, s)
}
