package tensor

import (
	"errors"
	"testing"
)

func TestNewRawZeroInitialized(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3})
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if raw.NumElements() != 6 {
		t.Errorf("NumElements = %d, want 6", raw.NumElements())
	}
	for i, v := range raw.Data() {
		if v != 0 {
			t.Errorf("element %d = %f, want 0", i, v)
		}
	}
}

func TestNewRawRejectsNegativeDims(t *testing.T) {
	_, err := NewRaw(Shape{2, -1})
	if !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}

func TestNewRawAllowsZeroSizedDims(t *testing.T) {
	raw, err := NewRaw(Shape{0, 4})
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if raw.NumElements() != 0 {
		t.Errorf("NumElements = %d, want 0", raw.NumElements())
	}
	if len(raw.Values()) != 0 {
		t.Errorf("Values should be empty")
	}
}

func TestRawTensorAtAndSet(t *testing.T) {
	raw, _ := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	if got := raw.At(1, 2); got != 6 {
		t.Errorf("At(1, 2) = %f, want 6", got)
	}
	raw.Set(42, 0, 1)
	if got := raw.Values()[1]; got != 42 {
		t.Errorf("after Set, element 1 = %f, want 42", got)
	}
}

func TestRawTensorAtOutOfBoundsPanics(t *testing.T) {
	raw, _ := FromSlice([]float64{1, 2}, Shape{2})
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrIndex) {
			t.Errorf("expected ErrIndex panic, got %v", r)
		}
	}()
	raw.At(2)
}

func TestRawTensorCloneIsDeep(t *testing.T) {
	raw, _ := FromSlice([]float64{1, 2, 3}, Shape{3})
	clone := raw.Clone()
	clone.Set(10, 0)
	if raw.At(0) != 1 {
		t.Error("Clone should not share storage")
	}
	if clone.SameStorage(raw) {
		t.Error("SameStorage should be false for a clone")
	}
}

func TestRawTensorItem(t *testing.T) {
	v, err := Scalar(3.5).Item()
	if err != nil || v != 3.5 {
		t.Errorf("Item() = %f, %v; want 3.5, nil", v, err)
	}
	raw, _ := FromSlice([]float64{1, 2}, Shape{2})
	if _, err := raw.Item(); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape for multi-element Item, got %v", err)
	}
}

func TestElementOffsetsFollowStrides(t *testing.T) {
	raw, _ := FromSlice([]float64{0, 1, 2, 3, 4, 5}, Shape{2, 3})
	tr, err := raw.Transpose(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 3, 1, 4, 2, 5}
	got := tr.Values()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transposed values = %v, want %v", got, want)
		}
	}
	if tr.IsContiguous() {
		t.Error("transpose should not be contiguous")
	}
	if !tr.Contiguous().IsContiguous() {
		t.Error("Contiguous() should produce a contiguous tensor")
	}
}
