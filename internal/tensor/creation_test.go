package tensor

import (
	"errors"
	"testing"
)

func TestFromSliceLengthMismatch(t *testing.T) {
	if _, err := FromSlice([]float64{1, 2, 3}, Shape{2, 2}); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}

func TestFullOnesZeros(t *testing.T) {
	f, _ := Full(Shape{2, 2}, 7)
	for _, v := range f.Values() {
		if v != 7 {
			t.Fatalf("Full values = %v", f.Values())
		}
	}
	o, _ := Ones(Shape{3})
	if !sliceEqual(o.Values(), []float64{1, 1, 1}) {
		t.Errorf("Ones = %v", o.Values())
	}
	z, _ := Zeros(Shape{})
	if z.NumElements() != 1 || z.Values()[0] != 0 {
		t.Errorf("Zeros scalar = %v", z.Values())
	}
}

func TestEyeAndArange(t *testing.T) {
	e, _ := Eye(3)
	want := []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	if !sliceEqual(e.Values(), want) {
		t.Errorf("Eye(3) = %v", e.Values())
	}
	a, _ := Arange(4)
	if !sliceEqual(a.Values(), []float64{0, 1, 2, 3}) {
		t.Errorf("Arange(4) = %v", a.Values())
	}
}
