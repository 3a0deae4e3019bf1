package benchmark

import (
	"sort"
	"strconv"
	"strings"
)

// ColumnValue is the column CoalesceMetric writes the chosen metric into.
const ColumnValue = "value"

// MetricCandidates returns the metric columns that answer a metric query,
// best match first: exact case-insensitive names, then names containing
// the query. An empty query selects the first metric column.
func (s Schema) MetricCandidates(t *Table, metric string) []string {
	metrics := s.MetricColumns(t)
	q := strings.ToLower(strings.TrimSpace(metric))
	if q == "" {
		if len(metrics) == 0 {
			return nil
		}
		return metrics[:1]
	}

	var exact, partial []string
	for _, c := range metrics {
		lc := strings.ToLower(c)
		switch {
		case lc == q:
			exact = append(exact, c)
		case strings.Contains(lc, q):
			partial = append(partial, c)
		}
	}
	return append(exact, partial...)
}

// CoalesceMetric resolves metric against t and writes, for every row, the
// first numeric value among the candidate columns into ColumnValue. Column
// names drift between periods, so a concatenated table may hold the same
// measure under several names.
func (s Schema) CoalesceMetric(t *Table, metric string) (*Table, []string, error) {
	candidates := s.MetricCandidates(t, metric)
	if len(candidates) == 0 {
		field := "metric"
		if metric != "" {
			field = "metric " + strconv.Quote(metric)
		}
		return nil, nil, &SchemaError{Dataset: s.Dataset, Field: field, Columns: t.Columns}
	}
	idx := make([]int, len(candidates))
	for i, c := range candidates {
		idx[i] = t.Index(c)
	}
	out := t.WithColumn(ColumnValue, func(row []string) string {
		for _, k := range idx {
			if v, ok := ParseNumber(row[k]); ok {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		return ""
	})
	return out, candidates, nil
}

// Rank sums valueCol per provider, orders providers by descending total
// (ties by name) and flags providers containing the main token. Providers
// are grouped by NormaliseProviderName, so a trust renamed between periods
// is ranked once.
func Rank(t *Table, valueCol, main string) []RankedProvider {
	pi, vi := t.Index(ColumnProvider), t.Index(valueCol)
	if pi < 0 || vi < 0 {
		return nil
	}

	totals := make(map[string]*RankedProvider)
	var order []string
	for _, r := range t.Rows {
		v, ok := ParseNumber(r[vi])
		if !ok {
			continue
		}
		key := NormaliseProviderName(r[pi])
		rp, exists := totals[key]
		if !exists {
			rp = &RankedProvider{Provider: strings.TrimSpace(r[pi])}
			totals[key] = rp
			order = append(order, key)
		}
		rp.Value += v
	}

	out := make([]RankedProvider, 0, len(order))
	mainTok := strings.ToLower(strings.TrimSpace(main))
	for _, k := range order {
		rp := *totals[k]
		rp.IsMain = mainTok != "" && strings.Contains(strings.ToLower(rp.Provider), mainTok)
		out = append(out, rp)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Value != out[b].Value {
			return out[a].Value > out[b].Value
		}
		return out[a].Provider < out[b].Provider
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Melt converts the metric columns of a normalized table into numeric
// observations. Non-numeric cells are skipped.
func Melt(t *Table, dataset Dataset, metrics []string) []Observation {
	pi, ti := t.Index(ColumnProvider), t.Index(ColumnPeriod)
	if pi < 0 || ti < 0 {
		return nil
	}
	var out []Observation
	for _, r := range t.Rows {
		start, _ := ParsePeriod(r[ti])
		for _, m := range metrics {
			mi := t.Index(m)
			if mi < 0 {
				continue
			}
			v, ok := ParseNumber(r[mi])
			if !ok {
				continue
			}
			out = append(out, Observation{
				Dataset:     dataset,
				Period:      r[ti],
				PeriodStart: start,
				Provider:    r[pi],
				Metric:      m,
				Value:       v,
			})
		}
	}
	return out
}
