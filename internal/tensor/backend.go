package tensor

// Backend defines the kernels the transform core executes once every level
// has been peeled off a primitive call. Kernels never see wrapped values.
//
// Kernels panic with an error value on malformed input; callers that need a
// returned error recover at their boundary.
type Backend interface {
	// Element-wise binary operations (NumPy broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor
	Atan2(a, b *RawTensor) *RawTensor

	// Element-wise unary operations
	Neg(x *RawTensor) *RawTensor
	Sin(x *RawTensor) *RawTensor
	Cos(x *RawTensor) *RawTensor
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor

	// Scalar operations (element-wise with scalar)
	MulScalar(x *RawTensor, scalar float64) *RawTensor
	AddScalar(x *RawTensor, scalar float64) *RawTensor
	PowScalar(x *RawTensor, exponent float64) *RawTensor

	// Reductions
	Sum(x *RawTensor, dims []int, keepDim bool) *RawTensor

	// Matrix operations: [..., M, K] @ [..., K, N] with broadcast batch dims
	MatMul(a, b *RawTensor) *RawTensor

	// Manipulation
	Cat(tensors []*RawTensor, dim int) *RawTensor
	DiagEmbed(x *RawTensor) *RawTensor
	Copy(x *RawTensor) *RawTensor

	// In-place operations write through dst's view
	AddInPlace(dst, src *RawTensor)
	CopyInPlace(dst, src *RawTensor)

	// Random number generation
	Rand(shape Shape) *RawTensor
	Randn(shape Shape) *RawTensor
	NormalInPlace(dst *RawTensor)

	// Comparison returning a Go value
	Equal(a, b *RawTensor) bool

	// Metadata
	Name() string
}
