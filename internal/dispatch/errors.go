package dispatch

import (
	"errors"
	"runtime"
)

// Usage errors.
var (
	// ErrInvalidArgument reports malformed transform arguments: in_dims,
	// out_dims, argnums, or primals/tangents/cotangents that do not match
	// their expected structure.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedReturnType reports a transformed function returning a
	// non-tensor where tensors are required.
	ErrUnsupportedReturnType = errors.New("unsupported return type")
)

// Capability gaps.
var (
	// ErrBatchingRuleNotImplemented reports a primitive with no batching rule
	// that also cannot use the slice-and-stack fallback.
	ErrBatchingRuleNotImplemented = errors.New("batching rule not implemented")

	// ErrNotImplementedForViewOp reports a view or in-place primitive without
	// a batching rule; the fallback cannot reproduce aliasing.
	ErrNotImplementedForViewOp = errors.New("not implemented for view op")

	// ErrEmptyBatchFallback reports the fallback being asked to loop over a
	// batch of size 0.
	ErrEmptyBatchFallback = errors.New("fallback over empty batch")

	// ErrNoDerivative reports a primitive with no differentiation rule for
	// the requested mode.
	ErrNoDerivative = errors.New("no derivative rule")
)

// Cross-transform misuse.
var (
	// ErrTransformMisuse reports host autodiff entry points or raw data
	// access used on values still owned by an active level.
	ErrTransformMisuse = errors.New("transform misuse")

	// ErrCapturedMutation reports an in-place write of a tracked value into a
	// tensor captured from outside the transform.
	ErrCapturedMutation = errors.New("captured tensor mutation")

	// ErrInPlaceUnbatched reports an in-place write of a batched value into
	// an unbatched tensor.
	ErrInPlaceUnbatched = errors.New("in-place into unbatched tensor")

	// ErrLevelStack reports a pop of a level that is not on top.
	ErrLevelStack = errors.New("level stack corrupted")
)

// ErrRandomness reports a random primitive used in a way the active
// randomness mode forbids.
var ErrRandomness = errors.New("randomness mode violation")

// ErrNoGrad is returned by Backward on a value no autodiff graph tracks.
var ErrNoGrad = errors.New("element 0 of tensors does not require grad and does not have a grad_fn")

// Recover converts a panic carrying an error into *errp. Runtime errors and
// non-error panics are re-raised. Call it deferred at a transform boundary.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if re, ok := r.(runtime.Error); ok {
		panic(re)
	}
	if err, ok := r.(error); ok {
		*errp = err
		return
	}
	panic(r)
}
