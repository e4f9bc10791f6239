// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/xform/internal/backend/cpu"
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// RawTensor is the strided float64 storage behind an unwrapped Tensor.
type RawTensor = tensor.RawTensor

// Backend executes kernels on RawTensors.
type Backend = tensor.Backend

// Tensor is a value that may carry annotations of active transform
// levels. Its Shape is the logical shape seen by user code.
type Tensor = dispatch.Tensor

// Session owns a level stack and a backend. It is not safe for concurrent
// use.
type Session = dispatch.Session

// Config tunes a Session.
type Config = dispatch.Config

// Option configures a Session.
type Option = dispatch.Option

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return dispatch.DefaultConfig()
}

// WithLogger sets the session logger.
var WithLogger = dispatch.WithLogger

// NewSession creates a session on the CPU backend seeded from cfg.
func NewSession(cfg Config, opts ...Option) *Session {
	opts = append([]Option{dispatch.WithConfig(cfg)}, opts...)
	return dispatch.NewSession(cpu.NewWithSeed(cfg.Seed), opts...)
}

// NewSessionWithBackend creates a session executing kernels on backend.
func NewSessionWithBackend(backend Backend, opts ...Option) *Session {
	return dispatch.NewSession(backend, opts...)
}

// Shape errors.
var (
	ErrShape         = tensor.ErrShape
	ErrDimOutOfRange = tensor.ErrDimOutOfRange
	ErrIndex         = tensor.ErrIndex
)
