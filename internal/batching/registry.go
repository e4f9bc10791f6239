package batching

import (
	"sort"

	"github.com/born-ml/xform/internal/dispatch"
)

// Rule computes a batched primitive call directly. args are unwrapped
// inner values and bdims their batch dims (-1 for unbatched arguments). It
// returns the result and its batch dim.
type Rule func(c *Context, args []*dispatch.Tensor, bdims []int, params dispatch.Params) (*dispatch.Tensor, int)

// Registry maps primitive names to batching rules.
type Registry struct {
	rules map[string]Rule
}

var defaultRegistry = NewRegistry()

// NewRegistry creates a registry holding every built-in rule.
func NewRegistry() *Registry {
	r := &Registry{
		rules: make(map[string]Rule),
	}

	r.registerElementwise()
	r.registerReductions()
	r.registerShapeOps()
	r.registerInPlace()

	return r
}

// Register adds or replaces the rule for a primitive.
func (r *Registry) Register(name string, rule Rule) {
	r.rules[name] = rule
}

// Get returns the rule for a primitive.
func (r *Registry) Get(name string) (Rule, bool) {
	rule, ok := r.rules[name]
	return rule, ok
}

// SupportedOps returns the names of primitives with a rule, sorted.
func (r *Registry) SupportedOps() []string {
	ops := make([]string, 0, len(r.rules))
	for op := range r.rules {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

func (r *Registry) registerElementwise() {
	for _, p := range []*dispatch.Primitive{dispatch.Add, dispatch.Sub, dispatch.Mul, dispatch.Div} {
		r.Register(p.Name, binaryRule)
	}
	for _, p := range []*dispatch.Primitive{
		dispatch.Neg, dispatch.Sin, dispatch.Cos, dispatch.Exp, dispatch.Log, dispatch.Tanh, dispatch.Clone,
		dispatch.MulScalar, dispatch.AddScalar, dispatch.PowScalar,
	} {
		r.Register(p.Name, unaryRule)
	}
}

func (r *Registry) registerReductions() {
	r.Register(dispatch.Sum.Name, sumRule)
	r.Register(dispatch.MatMul.Name, matmulRule)
}

func (r *Registry) registerShapeOps() {
	r.Register(dispatch.Reshape.Name, reshapeRule)
	r.Register(dispatch.Permute.Name, permuteRule)
	r.Register(dispatch.Expand.Name, expandRule)
	r.Register(dispatch.Unsqueeze.Name, unsqueezeRule)
	r.Register(dispatch.Squeeze.Name, squeezeRule)
	r.Register(dispatch.Select.Name, selectRule)
	r.Register(dispatch.Narrow.Name, narrowRule)
	r.Register(dispatch.Cat.Name, catRule)
}

func (r *Registry) registerInPlace() {
	r.Register(dispatch.AddInPlace.Name, inPlaceRule)
	r.Register(dispatch.CopyInPlace.Name, inPlaceRule)
}
