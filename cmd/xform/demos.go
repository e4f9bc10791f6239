package main

import (
	"fmt"
	"io"
	"math"

	"github.com/born-ml/xform/pytree"
	"github.com/born-ml/xform/tensor"
	"github.com/born-ml/xform/transforms"
)

var demos = map[string]func(s *tensor.Session, w io.Writer) error{
	"grad-sin":         gradSin,
	"per-sample-grads": perSampleGrads,
	"hessian":          hessian,
}

func arg(args []any, i int) *tensor.Tensor {
	return args[i].(*tensor.Tensor)
}

// gradSin differentiates sin twice and compares with cos and -sin.
func gradSin(s *tensor.Session, w io.Writer) error {
	sin := func(_ *tensor.Session, args ...any) (any, error) {
		return arg(args, 0).Sin(), nil
	}
	for _, v := range []float64{0, 0.5, 1} {
		x := s.Scalar(v)
		g, err := transforms.Grad(sin)(s, x)
		if err != nil {
			return err
		}
		gg, err := transforms.Grad(transforms.Grad(sin))(s, x)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "x=%.2f grad=%.6f (cos %.6f) grad2=%.6f (-sin %.6f)\n",
			v, g.(*tensor.Tensor).Item(), math.Cos(v), gg.(*tensor.Tensor).Item(), -math.Sin(v))
	}
	return nil
}

// perSampleGrads computes the gradient of a squared-error loss for every
// sample of a batch with one vmapped grad.
func perSampleGrads(s *tensor.Session, w io.Writer) error {
	loss := func(_ *tensor.Session, args ...any) (any, error) {
		weights, x, y := arg(args, 0), arg(args, 1), arg(args, 2)
		pred := x.MatMul(weights).Tanh()
		return pred.Sub(y).Square().Sum(), nil
	}
	weights := s.Randn(3)
	xs := s.Randn(4, 3)
	ys := s.Randn(4)

	grads, err := transforms.VMap(transforms.Grad(loss), transforms.InDims(pytree.Tuple{nil, 0, 0}))(s, weights, xs, ys)
	if err != nil {
		return err
	}
	g := grads.(*tensor.Tensor)
	fmt.Fprintf(w, "per-sample gradients %v:\n%v\n", g.Shape(), g)

	total, err := transforms.Grad(func(s *tensor.Session, args ...any) (any, error) {
		per, err := transforms.VMap(loss, transforms.InDims(pytree.Tuple{nil, 0, 0}))(s, args...)
		if err != nil {
			return nil, err
		}
		return per.(*tensor.Tensor).Sum(), nil
	})(s, weights, xs, ys)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "sum over samples %v\nbatch gradient   %v\n", g.Sum(0), total)
	return nil
}

// hessian computes the Hessian of a quadratic form both as
// jacfwd(jacrev(f)) and as jacrev(jacrev(f)).
func hessian(s *tensor.Session, w io.Writer) error {
	a := s.MustFromSlice([]float64{2, 1, 0, 1, 3, 1, 0, 1, 4}, 3, 3)
	quad := func(_ *tensor.Session, args ...any) (any, error) {
		x := arg(args, 0)
		return x.MatMul(a.MatMul(x)).MulScalar(0.5).Add(x.Sin().Sum()), nil
	}
	x := s.MustFromSlice([]float64{0.1, -0.2, 0.3}, 3)

	fwdRev, err := transforms.Hessian(quad)(s, x)
	if err != nil {
		return err
	}
	revRev, err := transforms.JacRev(transforms.JacRev(quad))(s, x)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "hessian (forward-over-reverse):\n%v\n", fwdRev)
	fmt.Fprintf(w, "hessian (reverse-over-reverse):\n%v\n", revRev)
	return nil
}
