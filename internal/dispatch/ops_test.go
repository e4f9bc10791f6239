package dispatch

import (
	"math"
	"testing"

	"github.com/born-ml/xform/internal/tensor"
	"github.com/stretchr/testify/assert"
)

func TestTensorOps_Elementwise(t *testing.T) {
	s := newTestSession()
	x := s.MustFromSlice([]float64{1, 2}, 2)
	y := s.MustFromSlice([]float64{3, 4}, 2)

	tests := []struct {
		name string
		got  *Tensor
		want []float64
	}{
		{"Add", x.Add(y), []float64{4, 6}},
		{"Sub", x.Sub(y), []float64{-2, -2}},
		{"Mul", x.Mul(y), []float64{3, 8}},
		{"Div", y.Div(x), []float64{3, 2}},
		{"Neg", x.Neg(), []float64{-1, -2}},
		{"Square", x.Square(), []float64{1, 4}},
		{"PowScalar", x.PowScalar(3), []float64{1, 8}},
		{"AddScalar", x.AddScalar(1), []float64{2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got.Values())
		})
	}

	assert.InDeltaSlice(t, []float64{math.Sin(1), math.Sin(2)}, x.Sin().Values(), 1e-12)
}

func TestTensorOps_Shape(t *testing.T) {
	s := newTestSession()
	x := s.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)

	assert.Equal(t, tensor.Shape{3, 2}, x.Transpose(0, 1).Shape())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, x.Transpose(0, 1).Values())
	assert.Equal(t, tensor.Shape{3, 2}, x.MoveDim(0, -1).Shape())
	assert.Equal(t, tensor.Shape{6}, x.Reshape(-1).Shape())
	assert.Equal(t, []float64{4, 5, 6}, x.Select(0, 1).Values())
	assert.Equal(t, []float64{2, 3, 5, 6}, x.Narrow(1, 1, 2).Values())
	assert.Equal(t, tensor.Shape{1, 2, 3}, x.Unsqueeze(0).Shape())
	assert.Equal(t, tensor.Shape{2, 3}, x.Unsqueeze(0).Squeeze(0).Shape())
	assert.Equal(t, []float64{5, 7, 9}, x.Sum(0).Values())
	assert.Equal(t, tensor.Shape{2, 1}, x.SumKeepDim(1).Shape())
	assert.Equal(t, []float64{3.5}, x.Mean().Reshape(1).Values())
}

func TestTensorOps_MatMulPromotion(t *testing.T) {
	s := newTestSession()
	m := s.MustFromSlice([]float64{1, 2, 3, 4}, 2, 2)
	v := s.MustFromSlice([]float64{1, 1}, 2)

	assert.Equal(t, []float64{3, 7}, m.MatMul(v).Values())
	assert.Equal(t, tensor.Shape{2}, v.MatMul(m).Shape())
	assert.Equal(t, tensor.Shape{}, v.MatMul(v).Shape())
	assert.Equal(t, 2.0, v.MatMul(v).Item())
}

func TestTensorOps_SumTo(t *testing.T) {
	s := newTestSession()
	g := s.Ones(2, 3, 4)

	assert.Equal(t, tensor.Shape{3, 1}, g.SumTo(tensor.Shape{3, 1}).Shape())
	assert.Equal(t, []float64{8, 8, 8}, g.SumTo(tensor.Shape{3, 1}).Values())
	assert.Equal(t, []float64{24}, g.SumTo(tensor.Shape{}).Reshape(1).Values())
	assert.Panics(t, func() { s.Ones(3).SumTo(tensor.Shape{2, 3}) })
}

func TestTensorOps_InPlaceAndScalars(t *testing.T) {
	s := newTestSession()
	x := s.Zeros(2)
	x.AddInPlace(s.Ones(2))
	assert.Equal(t, []float64{1, 1}, x.Values())
	x.CopyFrom(s.MustFromSlice([]float64{5, 6}, 2))
	assert.Equal(t, []float64{5, 6}, x.Values())

	assert.True(t, x.Equal(s.MustFromSlice([]float64{5, 6}, 2)))
	assert.False(t, x.Equal(s.Ones(2)))
	assert.Equal(t, 6.0, x.Select(0, 1).Item())
}

func TestSession_Stack(t *testing.T) {
	s := newTestSession()
	a := s.MustFromSlice([]float64{1, 2}, 2)
	b := s.MustFromSlice([]float64{3, 4}, 2)

	st := s.Stack([]*Tensor{a, b}, 0)
	assert.Equal(t, tensor.Shape{2, 2}, st.Shape())
	assert.Equal(t, []float64{1, 2, 3, 4}, st.Values())

	st = s.Stack([]*Tensor{a, b}, 1)
	assert.Equal(t, []float64{1, 3, 2, 4}, st.Values())
}
