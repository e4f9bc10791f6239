package cpu

import (
	"github.com/born-ml/xform/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// Rand draws a tensor of independent U[0, 1) samples.
func (cpu *CPUBackend) Rand(shape tensor.Shape) *tensor.RawTensor {
	dist := distuv.Uniform{Min: 0, Max: 1, Src: cpu.src}
	return fill(shape, dist.Rand)
}

// Randn draws a tensor of independent standard normal samples.
func (cpu *CPUBackend) Randn(shape tensor.Shape) *tensor.RawTensor {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: cpu.src}
	return fill(shape, dist.Rand)
}

// NormalInPlace overwrites every element reachable through dst with an
// independent standard normal sample.
func (cpu *CPUBackend) NormalInPlace(dst *tensor.RawTensor) {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: cpu.src}
	storage := dst.Storage()
	for _, off := range dst.ElementOffsets() {
		storage[off] = dist.Rand()
	}
}

func fill(shape tensor.Shape, draw func() float64) *tensor.RawTensor {
	result := tensor.MustNewRaw(shape)
	data := result.Data()
	for i := range data {
		data[i] = draw()
	}
	return result
}
