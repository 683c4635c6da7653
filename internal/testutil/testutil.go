// Package testutil holds small comparison and fixture helpers shared by
// tracesmith's test suites.
package testutil

import (
	"math"
	"math/big"
	"sort"

	"github.com/google/go-cmp/cmp"
)

var (
	alwaysEqual       = cmp.Comparer(func(_, _ interface{}) bool { return true })
	defaultCmpOptions = []cmp.Option{
		// big.Rat has unexported fields cmp can't see into on its own.
		cmp.Comparer(func(x, y *big.Rat) bool {
			if x == nil || y == nil {
				return x == y
			}
			return x.Cmp(y) == 0
		}),
		// NaNs compare equal, useful for percentile/average fields.
		cmp.FilterValues(func(x, y float64) bool {
			return math.IsNaN(x) && math.IsNaN(y)
		}, alwaysEqual),
		cmp.FilterValues(func(x, y float32) bool {
			return math.IsNaN(float64(x)) && math.IsNaN(float64(y))
		}, alwaysEqual),
	}
)

// Diff reports a human-readable difference between a and b, or "" if they
// are equal under the default comparison options plus any extras given.
func Diff(a, b interface{}, opts ...cmp.Option) string {
	opts = append(opts, defaultCmpOptions...)
	return cmp.Diff(a, b, opts...)
}

// DedupStrings returns the sorted, deduplicated contents of sl.
func DedupStrings(sl []string) (uniq []string) {
	m := make(map[string]bool)
	for _, s := range sl {
		if _, ok := m[s]; !ok {
			uniq = append(uniq, s)
			m[s] = true
		}
	}
	sort.Strings(uniq)
	return uniq
}

// MergeMap merges a into b and returns b, with a's values winning on key
// collisions.
func MergeMap(a, b map[string]interface{}) map[string]interface{} {
	if b == nil {
		return a
	}
	for k, v := range a {
		b[k] = v
	}
	return b
}
