package cpu

import (
	"fmt"

	"github.com/born-ml/xform/internal/parallel"
	"github.com/born-ml/xform/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// MatMul performs [..., M, K] @ [..., K, N] -> [..., M, N].
//
// Leading (batch) dimensions broadcast with NumPy rules. Each 2-D block is
// multiplied with gonum's dense matrix product; blocks run on parallel
// workers.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.Rank() < 2 || b.Rank() < 2 {
		panic(fmt.Errorf("matmul: %w: both arguments need at least 2 dimensions, got %v and %v",
			tensor.ErrShape, a.Shape(), b.Shape()))
	}
	as, bs := a.Shape(), b.Shape()
	m, k := as[len(as)-2], as[len(as)-1]
	k2, n := bs[len(bs)-2], bs[len(bs)-1]
	if k != k2 {
		panic(fmt.Errorf("matmul: %w: mat1 and mat2 shapes cannot be multiplied (%dx%d and %dx%d)",
			tensor.ErrShape, m, k, k2, n))
	}

	batch, _, err := tensor.BroadcastShapes(as[:len(as)-2], bs[:len(bs)-2])
	if err != nil {
		panic(fmt.Errorf("matmul: %w", err))
	}
	outShape := append(batch.Clone(), m, n)
	result := tensor.MustNewRaw(outShape)
	if m == 0 || n == 0 || k == 0 {
		return result
	}

	ea, err := a.Expand(append(batch.Clone(), m, k))
	if err != nil {
		panic(fmt.Errorf("matmul: %w", err))
	}
	eb, err := b.Expand(append(batch.Clone(), k, n))
	if err != nil {
		panic(fmt.Errorf("matmul: %w", err))
	}
	av, bv := ea.Values(), eb.Values()
	dst := result.Data()

	parallel.For(batch.NumElements(), func(i int) {
		ma := mat.NewDense(m, k, av[i*m*k:(i+1)*m*k])
		mb := mat.NewDense(k, n, bv[i*k*n:(i+1)*k*n])
		mat.NewDense(m, n, dst[i*m*n:(i+1)*m*n]).Mul(ma, mb)
	}, cpu.batches)
	return result
}
