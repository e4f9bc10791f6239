package transforms

import (
	"github.com/samber/lo"

	"github.com/born-ml/xform/internal/pytree"
)

// normalizeArgnums resolves argnums against nargs positional arguments.
// It returns the selected indices and whether results are to be returned
// as a tuple (argnums given as a collection).
func normalizeArgnums(argnums any, nargs int) ([]int, bool, error) {
	var nums []int
	tuple := true
	switch v := argnums.(type) {
	case int:
		nums, tuple = []int{v}, false
	case []int:
		nums = v
	case pytree.Tuple:
		nums = make([]int, len(v))
		for i, item := range v {
			n, ok := item.(int)
			if !ok {
				return nil, false, invalid("argnums must be int or Tuple[int, ...], got: %T at index %d; "+
					"each argnum must be int", item, i)
			}
			nums[i] = n
		}
	default:
		return nil, false, invalid("argnums must be int or Tuple[int, ...], got: %T", argnums)
	}

	if len(nums) == 0 {
		return nil, false, invalid("argnums must be non-empty")
	}
	out := make([]int, len(nums))
	for i, n := range nums {
		if n < -nargs || n >= nargs {
			return nil, false, invalid("Got argnums=%d, but only %d positional inputs", n, nargs)
		}
		if n < 0 {
			n += nargs
		}
		out[i] = n
	}
	if dups := lo.FindDuplicates(out); len(dups) > 0 {
		return nil, false, invalid("argnums must be unique, got %v (duplicates: %v)", nums, dups)
	}
	return out, tuple, nil
}

// selectArgs returns the arguments named by nums.
func selectArgs(args []any, nums []int) pytree.Tuple {
	return lo.Map(nums, func(n, _ int) any { return args[n] })
}

// replaceArgs returns a copy of args with the arguments named by nums
// replaced by values.
func replaceArgs(args []any, nums []int, values []any) []any {
	out := append([]any(nil), args...)
	for i, n := range nums {
		out[n] = values[i]
	}
	return out
}

// packArgnums shapes per-argument results the way argnums was given: a
// single value for an int, a tuple otherwise.
func packArgnums(results []any, tuple bool) any {
	if !tuple {
		return results[0]
	}
	return pytree.Tuple(results)
}
