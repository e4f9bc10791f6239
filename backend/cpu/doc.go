// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend executing tensor kernels.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Float64 strided storage with zero-copy views
//   - NumPy-compatible broadcasting
//   - Seeded random kernels
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/xform/backend/cpu"
//	    "github.com/born-ml/xform/tensor"
//	)
//
//	func main() {
//	    s := tensor.NewSessionWithBackend(cpu.NewWithSeed(42))
//	    x := s.Randn(2, 3)
//	}
package cpu
