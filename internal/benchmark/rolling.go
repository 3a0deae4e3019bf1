package benchmark

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// RollingWindow is the number of trailing periods averaged.
	RollingWindow = 12
	// RollingMinPeriods is the number of observed values required before an
	// average is produced.
	RollingMinPeriods = 4
	// ColumnRollingAverage is the column added by RollingAverage.
	ColumnRollingAverage = "avg_12w"
)

// RollingAverage sorts t by dateCol ascending and, within each group of
// groupCols, adds the trailing RollingWindow mean of valueCol. Rows whose
// window holds fewer than RollingMinPeriods numeric values get an empty
// average. Non-numeric cells count as missing observations.
func RollingAverage(t *Table, dateCol string, groupCols []string, valueCol string) (*Table, error) {
	di := t.Index(dateCol)
	if di < 0 {
		return nil, fmt.Errorf("rolling average: date column %q not found", dateCol)
	}
	vi := t.Index(valueCol)
	if vi < 0 {
		return nil, fmt.Errorf("rolling average: value column %q not found", valueCol)
	}
	gi := make([]int, len(groupCols))
	for i, g := range groupCols {
		if gi[i] = t.Index(g); gi[i] < 0 {
			return nil, fmt.Errorf("rolling average: group column %q not found", g)
		}
	}

	type dated struct {
		row  []string
		date time.Time
	}
	rows := make([]dated, len(t.Rows))
	for i, r := range t.Rows {
		d, err := ParsePeriod(r[di])
		if err != nil {
			return nil, fmt.Errorf("rolling average: row %d: %w", i, err)
		}
		rows[i] = dated{row: r, date: d}
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].date.Before(rows[b].date) })

	type window struct {
		values []float64
		ok     []bool
	}
	windows := make(map[string]*window)
	averages := make([]string, len(rows))

	for i, d := range rows {
		parts := make([]string, len(gi))
		for j, k := range gi {
			parts[j] = d.row[k]
		}
		key := strings.Join(parts, "\x1f")
		w, exists := windows[key]
		if !exists {
			w = &window{}
			windows[key] = w
		}

		v, ok := ParseNumber(d.row[vi])
		w.values = append(w.values, v)
		w.ok = append(w.ok, ok)
		if len(w.values) > RollingWindow {
			w.values = w.values[1:]
			w.ok = w.ok[1:]
		}

		var sum float64
		var n int
		for j, v := range w.values {
			if w.ok[j] {
				sum += v
				n++
			}
		}
		if n >= RollingMinPeriods {
			averages[i] = strconv.FormatFloat(sum/float64(n), 'f', -1, 64)
		}
	}

	sorted := &Table{Columns: t.Columns, Rows: make([][]string, len(rows))}
	for i, d := range rows {
		sorted.Rows[i] = d.row
	}
	i := 0
	return sorted.WithColumn(ColumnRollingAverage, func([]string) string {
		avg := averages[i]
		i++
		return avg
	}), nil
}
