package benchmark

import "strings"

// Table is an in-memory tabular dataset with a variable column set.
// Tables are treated as immutable: every transformation returns a new Table.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable builds a table from a header and rows. Header names are trimmed
// and rows are padded or truncated to the header width.
func NewTable(columns []string, rows [][]string) *Table {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}
	out := &Table{Columns: cols, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		row := make([]string, len(cols))
		copy(row, r)
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row i for the named column, or "" when the
// column is absent.
func (t *Table) Value(i int, column string) string {
	idx := t.Index(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i][idx]
}

// WithColumn returns a copy of the table with column set from fn. An
// existing column of the same name is overwritten in place.
func (t *Table) WithColumn(name string, fn func(row []string) string) *Table {
	idx := t.Index(name)
	cols := append([]string(nil), t.Columns...)
	if idx < 0 {
		cols = append(cols, name)
		idx = len(cols) - 1
	}
	out := &Table{Columns: cols, Rows: make([][]string, len(t.Rows))}
	for i, r := range t.Rows {
		row := make([]string, len(cols))
		copy(row, r)
		row[idx] = fn(r)
		out.Rows[i] = row
	}
	return out
}

// Filter returns the rows for which keep reports true.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, append([]string(nil), r...))
		}
	}
	return out
}

// Select projects the table onto the named columns. Unknown names are
// skipped.
func (t *Table) Select(columns ...string) *Table {
	var (
		cols []string
		idx  []int
	)
	for _, c := range columns {
		if i := t.Index(c); i >= 0 {
			cols = append(cols, c)
			idx = append(idx, i)
		}
	}
	out := &Table{Columns: cols, Rows: make([][]string, len(t.Rows))}
	for i, r := range t.Rows {
		row := make([]string, len(idx))
		for j, k := range idx {
			row[j] = r[k]
		}
		out.Rows[i] = row
	}
	return out
}

// Concat stacks tables vertically. The result has the union of all column
// names in first-seen order; cells missing from a source table are empty.
func Concat(tables ...*Table) *Table {
	out := &Table{}
	seen := make(map[string]int)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if _, ok := seen[c]; !ok {
				seen[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, r := range t.Rows {
			row := make([]string, len(out.Columns))
			for j, c := range t.Columns {
				row[seen[c]] = r[j]
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Records converts rows into provider records keyed by the canonical
// PROVIDER and period columns.
func (t *Table) Records() []ProviderRecord {
	pi, ti := t.Index(ColumnProvider), t.Index(ColumnPeriod)
	out := make([]ProviderRecord, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := ProviderRecord{Values: make(map[string]string, len(t.Columns))}
		for j, c := range t.Columns {
			switch j {
			case pi:
				rec.Provider = r[j]
			case ti:
				rec.Period = r[j]
			default:
				rec.Values[c] = r[j]
			}
		}
		out = append(out, rec)
	}
	return out
}
