package rollup

import "strings"

// Target is one row of the goal lookup table.
type Target struct {
	Scope  string  `json:"scope"`
	Metric string  `json:"metric"`
	Key    string  `json:"key"`
	Value  float64 `json:"target"`
}

// Target scopes used by the dashboard.
const (
	ScopeOrg   = "org"
	ScopeStore = "store"
)

// MetricSales is the metric every current view resolves targets for.
const MetricSales = "sales"

// ResolveTarget looks up the goal for a (scope, metric, key) triple,
// case-insensitively. The first matching row wins when duplicates exist.
// 0 means "no known target", not "target is zero": callers render a
// placeholder instead of a 0% progress bar.
func ResolveTarget(targets []Target, scope, metric, key string) float64 {
	for _, t := range targets {
		if strings.EqualFold(t.Scope, scope) &&
			strings.EqualFold(t.Metric, metric) &&
			strings.EqualFold(t.Key, key) {
			return t.Value
		}
	}
	return 0
}

// Progress computes value/target clamped to [0, 1]. ok is false when no
// target is set (target <= 0), meaning the ratio is unavailable rather
// than zero.
func Progress(value, target float64) (ratio float64, ok bool) {
	if target <= 0 {
		return 0, false
	}
	ratio = value / target
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return ratio, true
}
