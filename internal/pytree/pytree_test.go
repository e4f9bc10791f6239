package pytree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y any
	Name string
}

func init() {
	Register(
		func(p point) ([]any, any) { return []any{p.X, p.Y}, p.Name },
		func(children []any, ctx any) point {
			return point{X: children[0], Y: children[1], Name: ctx.(string)}
		},
	)
}

func TestFlattenUnflatten(t *testing.T) {
	tree := Tuple{1, List{2, 3}, Dict{"b": 5, "a": 4}, nil}

	leaves, spec := Flatten(tree)
	assert.Equal(t, []any{1, 2, 3, 4, 5}, leaves)
	assert.Equal(t, 5, spec.NumLeaves)
	assert.Equal(t, "(*, [*, *], {a: *, b: *}, None)", spec.String())

	rebuilt, err := Unflatten(leaves, spec)
	require.NoError(t, err)
	assert.Equal(t, tree, rebuilt)
}

func TestFlattenLeaf(t *testing.T) {
	leaves, spec := Flatten(3.5)
	assert.Equal(t, []any{3.5}, leaves)
	assert.True(t, spec.IsLeaf())
	assert.Equal(t, "*", spec.String())
}

func TestSingleTupleString(t *testing.T) {
	assert.Equal(t, "(*,)", StructureString(Tuple{1}))
}

func TestCustomNode(t *testing.T) {
	tree := List{point{X: 1, Y: Tuple{2, 3}, Name: "p"}}
	leaves, spec := Flatten(tree)
	assert.Equal(t, []any{1, 2, 3}, leaves)

	rebuilt, err := Unflatten([]any{10, 20, 30}, spec)
	require.NoError(t, err)
	assert.Equal(t, List{point{X: 10, Y: Tuple{20, 30}, Name: "p"}}, rebuilt)

	_, other := Flatten(List{point{X: 1, Y: Tuple{2, 3}, Name: "q"}})
	assert.False(t, spec.Equal(other), "context is part of the structure")
}

func TestUnflattenWrongCount(t *testing.T) {
	_, spec := Flatten(Tuple{1, 2})
	_, err := Unflatten([]any{1}, spec)
	assert.True(t, errors.Is(err, ErrStructure))
}

func TestSpecEqual(t *testing.T) {
	_, a := Flatten(Tuple{1, List{2}})
	_, b := Flatten(Tuple{"x", List{"y"}})
	_, c := Flatten(Tuple{1, Tuple{2}})
	_, d := Flatten(Dict{"a": 1})
	_, e := Flatten(Dict{"b": 1})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, d.Equal(e))
}

func TestMap(t *testing.T) {
	out, err := Map(Tuple{1, Dict{"k": 2}}, func(leaf any) (any, error) {
		return leaf.(int) * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, Tuple{10, Dict{"k": 20}}, out)

	boom := errors.New("boom")
	_, err = Map(Tuple{1}, func(any) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestBroadcastPrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix any
		tree   any
		want   []any
		ok     bool
	}{
		{"ScalarBroadcasts", 0, Tuple{"a", List{"b", "c"}}, []any{0, 0, 0}, true},
		{"NilBroadcasts", nil, Tuple{"a", "b"}, []any{nil, nil}, true},
		{"PerArgument", Tuple{0, nil}, Tuple{"a", List{"b", "c"}}, []any{0, nil, nil}, true},
		{"Nested", Tuple{List{1, 2}}, Tuple{List{"a", "b"}}, []any{1, 2}, true},
		{"ArityMismatch", Tuple{0, 1}, Tuple{"a"}, nil, false},
		{"KindMismatch", List{0}, Tuple{"a"}, nil, false},
		{"DictKeys", Dict{"a": 1}, Dict{"a": "x"}, []any{1}, true},
		{"DictKeyMismatch", Dict{"a": 1}, Dict{"b": "x"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BroadcastPrefix(tt.prefix, tt.tree)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrStructure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
