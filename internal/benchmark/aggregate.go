package benchmark

import (
	"strconv"
	"strings"
)

// Aggregation combines the numeric cells of rows that share a provider and
// period.
type Aggregation int

const (
	// AggregateSum adds counts such as attendances or patients waiting.
	AggregateSum Aggregation = iota
	// AggregateMean averages rates and percentages.
	AggregateMean
)

var meanKeywords = []string{"%", "percent", "rate", "ratio", "average", "mean", "median", "performance"}

// AggregationFor returns how a metric column combines across sub-rows of a
// single provider. Rates and percentages are averaged; everything else is
// summed.
func AggregationFor(metric string) Aggregation {
	m := strings.ToLower(metric)
	for _, k := range meanKeywords {
		if strings.Contains(m, k) {
			return AggregateMean
		}
	}
	return AggregateSum
}

type accumulator struct {
	sum float64
	n   int
}

func (a *accumulator) add(v float64) {
	a.sum += v
	a.n++
}

func (a accumulator) result(agg Aggregation) (float64, bool) {
	if a.n == 0 {
		return 0, false
	}
	if agg == AggregateMean {
		return a.sum / float64(a.n), true
	}
	return a.sum, true
}

// AggregateProviders collapses t to one row per (period, provider). Several
// publications split a trust across rows by specialty, type or site; the
// metric columns of those rows are combined with AggregationFor. Providers
// are matched by NormaliseProviderName and keep the first label seen. A
// group with no numeric cell for a metric gets an empty cell. The result
// holds ColumnPeriod (when present), ColumnProvider and metrics, in order of
// first appearance.
func AggregateProviders(t *Table, metrics []string) *Table {
	return aggregateProviders(t, metrics, AggregationFor)
}

func aggregateProviders(t *Table, metrics []string, aggFor func(string) Aggregation) *Table {
	pi := t.Index(ColumnProvider)
	if pi < 0 {
		return t
	}
	ti := t.Index(ColumnPeriod)

	mi := make([]int, 0, len(metrics))
	kept := make([]string, 0, len(metrics))
	for _, m := range metrics {
		if i := t.Index(m); i >= 0 {
			mi = append(mi, i)
			kept = append(kept, m)
		}
	}

	type group struct {
		period   string
		provider string
		acc      []accumulator
	}
	groups := make(map[string]*group)
	var order []string
	for _, r := range t.Rows {
		period := ""
		if ti >= 0 {
			period = r[ti]
		}
		key := period + "\x1f" + NormaliseProviderName(r[pi])
		g, ok := groups[key]
		if !ok {
			g = &group{period: period, provider: strings.TrimSpace(r[pi]), acc: make([]accumulator, len(mi))}
			groups[key] = g
			order = append(order, key)
		}
		for j, k := range mi {
			if v, ok := ParseNumber(r[k]); ok {
				g.acc[j].add(v)
			}
		}
	}

	var cols []string
	if ti >= 0 {
		cols = append(cols, ColumnPeriod)
	}
	cols = append(cols, ColumnProvider)
	cols = append(cols, kept...)

	rows := make([][]string, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := make([]string, 0, len(cols))
		if ti >= 0 {
			row = append(row, g.period)
		}
		row = append(row, g.provider)
		for j, m := range kept {
			cell := ""
			if v, ok := g.acc[j].result(aggFor(m)); ok {
				cell = strconv.FormatFloat(v, 'f', -1, 64)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return NewTable(cols, rows)
}
