// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the values the function transforms operate on.
//
// # Overview
//
// A Session owns a level stack and a kernel backend. Tensors created from
// a session are immutable values except for the explicit in-place
// operations (AddInPlace, CopyFrom, NormalInPlace). Every operation goes
// through the session's dispatcher, so the same code runs unchanged on
// plain tensors and inside vmap, grad, vjp and jvp.
//
// # Basic Usage
//
//	s := tensor.NewSession(tensor.DefaultConfig())
//	x := s.MustFromSlice([]float64{1, 2, 3, 4}, 2, 2)
//	y := x.MatMul(x).Sum(0)  // [22 32]
//
// # Views
//
// Permute, Expand, Unsqueeze, Squeeze, Select, Narrow and Diagonal return
// views sharing storage with their input. Reshape is a view when its
// input is contiguous and a copy otherwise.
//
// # Errors
//
// Tensor methods panic with error values wrapping the sentinels below.
// The transform drivers convert those panics into returned errors.
package tensor
