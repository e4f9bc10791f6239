package dispatch

import (
	"github.com/born-ml/xform/internal/tensor"
)

// FromRaw adopts a RawTensor as an unwrapped value.
func (s *Session) FromRaw(raw *tensor.RawTensor) *Tensor {
	return s.newTensor(raw)
}

// FromSlice creates an unwrapped tensor from data.
func (s *Session) FromSlice(data []float64, shape ...int) (*Tensor, error) {
	raw, err := tensor.FromSlice(data, tensor.Shape(shape))
	if err != nil {
		return nil, err
	}
	return s.newTensor(raw), nil
}

// MustFromSlice is FromSlice that panics on error.
func (s *Session) MustFromSlice(data []float64, shape ...int) *Tensor {
	t, err := s.FromSlice(data, shape...)
	if err != nil {
		panic(err)
	}
	return t
}

// Scalar creates a 0-dim tensor.
func (s *Session) Scalar(v float64) *Tensor {
	return s.newTensor(tensor.Scalar(v))
}

// Full creates a tensor of shape filled with v.
func (s *Session) Full(v float64, shape ...int) *Tensor {
	return s.Call(Full, nil, Params{Shape: tensor.Shape(shape), Scalar: v})
}

// Zeros creates a zero tensor.
func (s *Session) Zeros(shape ...int) *Tensor { return s.Full(0, shape...) }

// Ones creates a tensor of ones.
func (s *Session) Ones(shape ...int) *Tensor { return s.Full(1, shape...) }

// ZerosLike creates zeros with the logical shape of t.
func (s *Session) ZerosLike(t *Tensor) *Tensor { return s.Full(0, t.Shape()...) }

// OnesLike creates ones with the logical shape of t.
func (s *Session) OnesLike(t *Tensor) *Tensor { return s.Full(1, t.Shape()...) }

// Eye creates an n x n identity matrix.
func (s *Session) Eye(n int) *Tensor {
	raw, err := tensor.Eye(n)
	if err != nil {
		panic(err)
	}
	return s.newTensor(raw)
}

// Arange creates [0, 1, ..., n-1].
func (s *Session) Arange(n int) *Tensor {
	raw, err := tensor.Arange(n)
	if err != nil {
		panic(err)
	}
	return s.newTensor(raw)
}

// Rand draws U[0, 1) samples.
func (s *Session) Rand(shape ...int) *Tensor {
	return s.Call(Rand, nil, Params{Shape: tensor.Shape(shape)})
}

// Randn draws standard normal samples.
func (s *Session) Randn(shape ...int) *Tensor {
	return s.Call(Randn, nil, Params{Shape: tensor.Shape(shape)})
}

// RandnLike draws standard normal samples shaped like t.
func (s *Session) RandnLike(t *Tensor) *Tensor {
	return s.Call(RandnLike, []*Tensor{t}, Params{})
}

// Cat concatenates tensors along dim.
func (s *Session) Cat(tensors []*Tensor, dim int) *Tensor {
	return s.Call(Cat, tensors, Params{Dim: dim})
}

// Stack joins tensors along a new dimension dim.
func (s *Session) Stack(tensors []*Tensor, dim int) *Tensor {
	if len(tensors) == 0 {
		return s.Cat(nil, dim)
	}
	d := mustDim(dim, tensors[0].Dim()+1)
	parts := make([]*Tensor, len(tensors))
	for i, t := range tensors {
		parts[i] = t.Unsqueeze(d)
	}
	return s.Cat(parts, d)
}
