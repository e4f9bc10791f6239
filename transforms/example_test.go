// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package transforms_test

import (
	"errors"
	"fmt"

	"github.com/born-ml/xform/pytree"
	"github.com/born-ml/xform/tensor"
	"github.com/born-ml/xform/transforms"
)

func ExampleGrad() {
	s := tensor.NewSession(tensor.DefaultConfig())
	cube := func(_ *tensor.Session, args ...any) (any, error) {
		return args[0].(*tensor.Tensor).PowScalar(3).Sum(), nil
	}
	g, err := transforms.Grad(cube)(s, s.MustFromSlice([]float64{1, 2}, 2))
	if err != nil {
		panic(err)
	}
	fmt.Println(g.(*tensor.Tensor).Values())
	// Output: [3 12]
}

func ExampleVMap() {
	s := tensor.NewSession(tensor.DefaultConfig())
	dot := func(_ *tensor.Session, args ...any) (any, error) {
		return args[0].(*tensor.Tensor).Mul(args[1].(*tensor.Tensor)).Sum(), nil
	}
	xs := s.MustFromSlice([]float64{1, 2, 3, 4}, 2, 2)
	w := s.MustFromSlice([]float64{10, 1}, 2)
	out, err := transforms.VMap(dot, transforms.InDims(pytree.Tuple{0, nil}))(s, xs, w)
	if err != nil {
		panic(err)
	}
	fmt.Println(out.(*tensor.Tensor).Values())
	// Output: [12 34]
}

func ExampleVMap_sizeMismatch() {
	s := tensor.NewSession(tensor.DefaultConfig())
	add := func(_ *tensor.Session, args ...any) (any, error) {
		return args[0].(*tensor.Tensor).Add(args[1].(*tensor.Tensor)), nil
	}
	_, err := transforms.VMap(add)(s, s.Ones(2), s.Ones(3))
	fmt.Println(errors.Is(err, transforms.ErrInvalidArgument))
	// Output: true
}
