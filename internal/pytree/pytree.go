// Package pytree flattens nested containers into an ordered list of leaves
// plus a TreeSpec that rebuilds the container, and back.
//
// Built-in nodes are Tuple, List, Dict and nil (a node with no children).
// Any other value is a leaf unless its type was registered with Register.
package pytree

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
)

// ErrStructure reports a structural mismatch between two trees or between a
// tree and a leaf list.
var ErrStructure = errors.New("pytree: structure mismatch")

// Tuple is an ordered, fixed-size container node.
type Tuple []any

// List is an ordered container node.
type List []any

// Dict is a string-keyed container node. Children are visited in sorted key
// order.
type Dict map[string]any

// Kind identifies the node type of a TreeSpec.
type Kind int

// Node kinds.
const (
	LeafKind Kind = iota
	NoneKind
	TupleKind
	ListKind
	DictKind
	CustomKind
)

func (k Kind) String() string {
	switch k {
	case LeafKind:
		return "leaf"
	case NoneKind:
		return "None"
	case TupleKind:
		return "tuple"
	case ListKind:
		return "list"
	case DictKind:
		return "dict"
	case CustomKind:
		return "custom"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// TreeSpec describes the container structure of a flattened tree.
type TreeSpec struct {
	Kind      Kind
	Type      reflect.Type // CustomKind only
	Keys      []string     // DictKind only
	Context   any          // CustomKind only
	Children  []*TreeSpec
	NumLeaves int
}

// IsLeaf reports whether the spec is a single leaf.
func (s *TreeSpec) IsLeaf() bool {
	return s.Kind == LeafKind
}

// Equal reports whether two specs describe the same structure.
func (s *TreeSpec) Equal(other *TreeSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Kind != other.Kind || s.Type != other.Type || len(s.Children) != len(other.Children) {
		return false
	}
	if !slices.Equal(s.Keys, other.Keys) {
		return false
	}
	if s.Kind == CustomKind && !reflect.DeepEqual(s.Context, other.Context) {
		return false
	}
	for i := range s.Children {
		if !s.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// String renders the structure with * for leaves, e.g. (*, [*, *], {a: *}).
func (s *TreeSpec) String() string {
	var b strings.Builder
	s.write(&b)
	return b.String()
}

func (s *TreeSpec) write(b *strings.Builder) {
	switch s.Kind {
	case LeafKind:
		b.WriteString("*")
	case NoneKind:
		b.WriteString("None")
	case TupleKind, ListKind, CustomKind:
		open, closing := "(", ")"
		if s.Kind == ListKind {
			open, closing = "[", "]"
		}
		if s.Kind == CustomKind {
			b.WriteString(s.Type.String())
		}
		b.WriteString(open)
		for i, c := range s.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			c.write(b)
		}
		if s.Kind == TupleKind && len(s.Children) == 1 {
			b.WriteString(",")
		}
		b.WriteString(closing)
	case DictKind:
		b.WriteString("{")
		for i, c := range s.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.Keys[i])
			b.WriteString(": ")
			c.write(b)
		}
		b.WriteString("}")
	}
}

// node describes how to take apart and rebuild one registered container type.
type node struct {
	flatten   func(v any) (children []any, context any)
	unflatten func(children []any, context any) any
}

var (
	registryMu sync.RWMutex
	registry   = map[reflect.Type]node{}
)

// Register makes values of type T container nodes. flatten returns the
// children in a fixed order plus any context needed to rebuild the value;
// unflatten reverses it.
func Register[T any](flatten func(T) ([]any, any), unflatten func(children []any, context any) T) {
	typ := reflect.TypeFor[T]()
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[typ] = node{
		flatten: func(v any) ([]any, any) {
			return flatten(v.(T))
		},
		unflatten: func(children []any, context any) any {
			return unflatten(children, context)
		},
	}
}

func lookup(v any) (node, bool) {
	if v == nil {
		return node{}, false
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	n, ok := registry[reflect.TypeOf(v)]
	return n, ok
}

// IsNode reports whether v is a container node rather than a leaf.
func IsNode(v any) bool {
	switch v.(type) {
	case nil, Tuple, List, Dict:
		return true
	}
	_, ok := lookup(v)
	return ok
}

// Flatten returns the leaves of tree in depth-first order and the spec that
// rebuilds it.
func Flatten(tree any) ([]any, *TreeSpec) {
	var leaves []any
	spec := flatten(tree, &leaves)
	return leaves, spec
}

func flatten(tree any, leaves *[]any) *TreeSpec {
	start := len(*leaves)
	spec := &TreeSpec{}
	children := func(items []any) {
		for _, item := range items {
			spec.Children = append(spec.Children, flatten(item, leaves))
		}
	}
	switch v := tree.(type) {
	case nil:
		spec.Kind = NoneKind
	case Tuple:
		spec.Kind = TupleKind
		children(v)
	case List:
		spec.Kind = ListKind
		children(v)
	case Dict:
		spec.Kind = DictKind
		spec.Keys = sortedKeys(v)
		for _, k := range spec.Keys {
			spec.Children = append(spec.Children, flatten(v[k], leaves))
		}
	default:
		if n, ok := lookup(tree); ok {
			spec.Kind = CustomKind
			spec.Type = reflect.TypeOf(tree)
			items, ctx := n.flatten(tree)
			spec.Context = ctx
			children(items)
		} else {
			spec.Kind = LeafKind
			*leaves = append(*leaves, tree)
		}
	}
	spec.NumLeaves = len(*leaves) - start
	return spec
}

func sortedKeys(d Dict) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Leaves returns the leaves of tree.
func Leaves(tree any) []any {
	leaves, _ := Flatten(tree)
	return leaves
}

// Unflatten rebuilds a tree of structure spec from leaves.
func Unflatten(leaves []any, spec *TreeSpec) (any, error) {
	if len(leaves) != spec.NumLeaves {
		return nil, fmt.Errorf("%w: tree %s expects %d leaves, got %d", ErrStructure, spec, spec.NumLeaves, len(leaves))
	}
	out, _ := unflatten(leaves, spec)
	return out, nil
}

func unflatten(leaves []any, spec *TreeSpec) (any, []any) {
	build := func() ([]any, []any) {
		items := make([]any, len(spec.Children))
		for i, c := range spec.Children {
			items[i], leaves = unflatten(leaves, c)
		}
		return items, leaves
	}
	switch spec.Kind {
	case LeafKind:
		return leaves[0], leaves[1:]
	case NoneKind:
		return nil, leaves
	case TupleKind:
		items, rest := build()
		return Tuple(items), rest
	case ListKind:
		items, rest := build()
		return List(items), rest
	case DictKind:
		items, rest := build()
		d := make(Dict, len(items))
		for i, k := range spec.Keys {
			d[k] = items[i]
		}
		return d, rest
	default:
		items, rest := build()
		registryMu.RLock()
		n := registry[spec.Type]
		registryMu.RUnlock()
		return n.unflatten(items, spec.Context), rest
	}
}

// Map applies fn to every leaf and rebuilds the tree.
func Map(tree any, fn func(leaf any) (any, error)) (any, error) {
	leaves, spec := Flatten(tree)
	mapped := make([]any, len(leaves))
	for i, leaf := range leaves {
		v, err := fn(leaf)
		if err != nil {
			return nil, err
		}
		mapped[i] = v
	}
	return Unflatten(mapped, spec)
}

// BroadcastPrefix expands prefix against tree and returns one prefix value
// per leaf of tree. Any non-container value in prefix (including nil)
// applies to the whole subtree at its position; container values must match
// the kind and arity of tree at the same position.
func BroadcastPrefix(prefix, tree any) ([]any, error) {
	var out []any
	if !broadcastPrefix(prefix, tree, &out) {
		return nil, ErrStructure
	}
	return out, nil
}

func broadcastPrefix(prefix, tree any, out *[]any) bool {
	if prefix == nil || !IsNode(prefix) {
		_, spec := Flatten(tree)
		for i := 0; i < spec.NumLeaves; i++ {
			*out = append(*out, prefix)
		}
		return true
	}
	_, ps := Flatten(prefix)
	_, ts := Flatten(tree)
	if ps.Kind != ts.Kind || ps.Type != ts.Type || len(ps.Children) != len(ts.Children) || !slices.Equal(ps.Keys, ts.Keys) {
		return false
	}
	pc, tc := children(prefix), children(tree)
	for i := range pc {
		if !broadcastPrefix(pc[i], tc[i], out) {
			return false
		}
	}
	return true
}

// children returns the immediate children of a node in flatten order.
func children(v any) []any {
	switch n := v.(type) {
	case nil:
		return nil
	case Tuple:
		return n
	case List:
		return n
	case Dict:
		keys := sortedKeys(n)
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = n[k]
		}
		return items
	}
	if reg, ok := lookup(v); ok {
		items, _ := reg.flatten(v)
		return items
	}
	return nil
}

// StructureString renders the structure of tree the way TreeSpec.String
// does.
func StructureString(tree any) string {
	_, spec := Flatten(tree)
	return spec.String()
}
