// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/xform/internal/backend/cpu"
	"github.com/born-ml/xform/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend with the default seed.
func New() *Backend {
	return internalcpu.New()
}

// NewWithSeed creates a CPU backend whose random kernels are seeded with
// seed.
func NewWithSeed(seed uint64) *Backend {
	return internalcpu.NewWithSeed(seed)
}
