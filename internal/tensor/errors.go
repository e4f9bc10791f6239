package tensor

import "errors"

// Sentinel errors reported by shape checks, views and kernels.
var (
	ErrShape         = errors.New("shape mismatch")
	ErrDimOutOfRange = errors.New("dimension out of range")
	ErrIndex         = errors.New("index out of range")
)
