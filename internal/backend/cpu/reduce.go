package cpu

import (
	"fmt"
	"slices"

	"github.com/born-ml/xform/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Sum reduces x over dims. An empty dims reduces over every dimension.
// With keepDim the reduced dimensions stay as size 1.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor, dims []int, keepDim bool) *tensor.RawTensor {
	rank := x.Rank()
	reduce := make([]bool, rank)
	if len(dims) == 0 {
		for i := range reduce {
			reduce[i] = true
		}
	}
	for _, d := range dims {
		nd, err := tensor.NormalizeDim(d, rank)
		if err != nil {
			panic(fmt.Errorf("sum: %w", err))
		}
		if rank > 0 {
			reduce[nd] = true
		}
	}

	keptShape := x.Shape().Clone()
	for i, r := range reduce {
		if r {
			keptShape[i] = 1
		}
	}
	result := tensor.MustNewRaw(keptShape)
	dst := result.Data()

	switch {
	case !slices.Contains(reduce, false) && x.IsContiguous():
		if len(dst) > 0 {
			dst[0] = floats.Sum(x.Data())
		}
	default:
		outStrides := keptShape.ComputeStrides()
		shape := x.Shape()
		index := make([]int, rank)
		src := x.Storage()
		for _, off := range x.ElementOffsets() {
			outOff := 0
			for d := 0; d < rank; d++ {
				if !reduce[d] {
					outOff += index[d] * outStrides[d]
				}
			}
			dst[outOff] += src[off]
			for d := rank - 1; d >= 0; d-- {
				index[d]++
				if index[d] < shape[d] {
					break
				}
				index[d] = 0
			}
		}
	}

	if keepDim {
		return result
	}
	outShape := make(tensor.Shape, 0, rank)
	for i, r := range reduce {
		if !r {
			outShape = append(outShape, keptShape[i])
		}
	}
	out, err := result.Reshape(outShape)
	if err != nil {
		panic(fmt.Errorf("sum: %w", err))
	}
	return out
}
