package rollup

import "sort"

// TopN returns the n groups with the highest sales sum, descending. The
// sort is stable: groups with equal sums keep their relative input order,
// so results are deterministic across re-renders given unchanged input.
func TopN(groups []Group, n int) []Group {
	return TopNBy(groups, n, func(g Group) float64 { return g.SalesSum })
}

// TopNBy ranks by an arbitrary sort key, descending, stable.
func TopNBy(groups []Group, n int, key func(Group) float64) []Group {
	out := make([]Group, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i]) > key(out[j])
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
