package rollup

import "sort"

// Group is the rollup for one grouping key over a time window.
type Group struct {
	Key               string
	SalesSum          float64
	SalesCount        int
	DepositSum        float64
	LargestSingleSale float64
}

// KeyFunc selects the grouping key for a record.
type KeyFunc func(Record) string

// WindowFunc decides whether a record belongs to the aggregation window.
// A nil window admits everything.
type WindowFunc func(Record) bool

// Aggregate folds records into per-key groups. Only strictly positive
// amounts contribute to the sales sum, count and largest-sale accumulators,
// and only strictly positive deposits contribute to the deposit sum; this
// is deliberate policy, zero and negative values are excluded. A record
// with nothing positive still creates its group, so callers see the key
// with zeroed totals rather than no row at all. Output order is first-seen.
func Aggregate(records []Record, key KeyFunc, window WindowFunc) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, r := range records {
		if window != nil && !window(r) {
			continue
		}
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		g := &groups[i]
		if r.Amount > 0 {
			g.SalesSum += r.Amount
			g.SalesCount++
			if r.Amount > g.LargestSingleSale {
				g.LargestSingleSale = r.Amount
			}
		}
		if r.Deposit > 0 {
			g.DepositSum += r.Deposit
		}
	}
	return groups
}

// SeriesPoint is one step of a cumulative time series.
type SeriesPoint struct {
	Day        string
	Cumulative float64
}

// CumulativeByDay sums positive amounts per calendar day inside the window
// and returns the running total in chronological order. Days are sorted
// internally, so the series is monotonically non-decreasing by
// construction regardless of input order.
func CumulativeByDay(records []Record, day KeyFunc, window WindowFunc) []SeriesPoint {
	sums := make(map[string]float64)
	for _, r := range records {
		if window != nil && !window(r) {
			continue
		}
		d := day(r)
		if d == "" {
			continue
		}
		if r.Amount > 0 {
			sums[d] += r.Amount
		}
	}

	days := make([]string, 0, len(sums))
	for d := range sums {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]SeriesPoint, 0, len(days))
	run := 0.0
	for _, d := range days {
		run += sums[d]
		out = append(out, SeriesPoint{Day: d, Cumulative: run})
	}
	return out
}

// SumByDay sums positive amounts per calendar day for an explicit ordered
// day axis, returning one bucket per axis entry (zero when the day had no
// sales). Used by the fixed-axis chart views.
func SumByDay(records []Record, day KeyFunc, axis []string) []float64 {
	idx := make(map[string]int, len(axis))
	for i, d := range axis {
		idx[d] = i
	}
	buckets := make([]float64, len(axis))
	for _, r := range records {
		i, ok := idx[day(r)]
		if !ok {
			continue
		}
		if r.Amount > 0 {
			buckets[i] += r.Amount
		}
	}
	return buckets
}

// CumulativeSums converts per-bucket sums into a running total.
func CumulativeSums(buckets []float64) []float64 {
	out := make([]float64, len(buckets))
	run := 0.0
	for i, v := range buckets {
		run += v
		out[i] = run
	}
	return out
}
