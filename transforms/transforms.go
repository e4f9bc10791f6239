// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package transforms provides composable function transforms over
// tensor-valued Go functions.
//
// A Func takes a session and positional arguments (tensors, pytrees of
// tensors or constants) and returns a pytree. Every transform returns a
// Func again, so transforms nest freely:
//
//	s := tensor.NewSession(tensor.DefaultConfig())
//	loss := func(s *tensor.Session, args ...any) (any, error) {
//	    w, x := args[0].(*tensor.Tensor), args[1].(*tensor.Tensor)
//	    return w.Mul(x).Sin().Sum(), nil
//	}
//	perSample := transforms.VMap(transforms.Grad(loss), transforms.InDims(pytree.Tuple{nil, 0}))
//	grads, err := perSample(s, w, xs)
//
// Errors returned by transformed functions wrap the sentinels declared
// here and can be matched with errors.Is.
package transforms

import (
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/transforms"
)

// Func is a function over pytrees of tensors.
type Func = transforms.Func

// Option configures a transform.
type Option = transforms.Option

// VJPFunc maps output cotangents to one gradient per primal.
type VJPFunc = transforms.VJPFunc

// Transforms.
var (
	VMap         = transforms.VMap
	Grad         = transforms.Grad
	GradAndValue = transforms.GradAndValue
	VJP          = transforms.VJP
	VJPWithAux   = transforms.VJPWithAux
	JVP          = transforms.JVP
	JVPWithAux   = transforms.JVPWithAux
	JacRev       = transforms.JacRev
	JacFwd       = transforms.JacFwd
	Hessian      = transforms.Hessian
)

// Options.
var (
	InDims     = transforms.InDims
	OutDims    = transforms.OutDims
	Randomness = transforms.Randomness
	Argnums    = transforms.Argnums
	HasAux     = transforms.HasAux
	Strict     = transforms.Strict
)

// Errors.
var (
	ErrInvalidArgument            = dispatch.ErrInvalidArgument
	ErrUnsupportedReturnType      = dispatch.ErrUnsupportedReturnType
	ErrBatchingRuleNotImplemented = dispatch.ErrBatchingRuleNotImplemented
	ErrNotImplementedForViewOp    = dispatch.ErrNotImplementedForViewOp
	ErrEmptyBatchFallback         = dispatch.ErrEmptyBatchFallback
	ErrNoDerivative               = dispatch.ErrNoDerivative
	ErrTransformMisuse            = dispatch.ErrTransformMisuse
	ErrCapturedMutation           = dispatch.ErrCapturedMutation
	ErrInPlaceUnbatched           = dispatch.ErrInPlaceUnbatched
	ErrLevelStack                 = dispatch.ErrLevelStack
	ErrRandomness                 = dispatch.ErrRandomness
	ErrNoGrad                     = dispatch.ErrNoGrad
)
