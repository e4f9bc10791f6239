// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pytree flattens nested containers of tensors into leaves and a
// structure description, and rebuilds them.
//
// Tuple, List and Dict are the built-in containers. Other types become
// containers through Register. Any other value is a leaf.
//
// Example:
//
//	leaves, spec := pytree.Flatten(pytree.Dict{"w": w, "b": pytree.Tuple{b1, b2}})
//	tree, err := pytree.Unflatten(leaves, spec)
package pytree

import "github.com/born-ml/xform/internal/pytree"

// Tuple is an ordered fixed-arity container. Transforms return multiple
// results as Tuples.
type Tuple = pytree.Tuple

// List is an ordered container.
type List = pytree.List

// Dict is a string-keyed container flattened in sorted key order.
type Dict = pytree.Dict

// TreeSpec describes the structure of a flattened tree.
type TreeSpec = pytree.TreeSpec

// Flatten returns the leaves of tree in order and its structure.
func Flatten(tree any) ([]any, *TreeSpec) {
	return pytree.Flatten(tree)
}

// Unflatten rebuilds a tree of the given structure from leaves.
func Unflatten(leaves []any, spec *TreeSpec) (any, error) {
	return pytree.Unflatten(leaves, spec)
}

// Leaves returns the leaves of tree.
func Leaves(tree any) []any {
	return pytree.Leaves(tree)
}

// Map applies fn to every leaf of tree.
func Map(tree any, fn func(leaf any) (any, error)) (any, error) {
	return pytree.Map(tree, fn)
}

// Register makes T a container: flatten returns its children and a
// context, unflatten rebuilds it.
func Register[T any](flatten func(T) ([]any, any), unflatten func(children []any, context any) T) {
	pytree.Register(flatten, unflatten)
}
