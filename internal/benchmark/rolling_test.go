package benchmark

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlySeries(provider string, n int) [][]string {
	rows := make([][]string, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, []string{fmt.Sprintf("2024-%02d", i), provider, strconv.Itoa(i)})
	}
	return rows
}

func TestRollingAverageMinimumPeriods(t *testing.T) {
	tbl := NewTable([]string{ColumnPeriod, ColumnProvider, ColumnValue}, monthlySeries("A", 3))

	out, err := RollingAverage(tbl, ColumnPeriod, []string{ColumnProvider}, ColumnValue)
	require.NoError(t, err)
	for i := range out.Rows {
		assert.Empty(t, out.Value(i, ColumnRollingAverage), "row %d", i)
	}
}

func TestRollingAverageTwelfthPeriodIsMean(t *testing.T) {
	rows := monthlySeries("A", 12)
	// Reverse so sorting by period is exercised.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	tbl := NewTable([]string{ColumnPeriod, ColumnProvider, ColumnValue}, rows)

	out, err := RollingAverage(tbl, ColumnPeriod, []string{ColumnProvider}, ColumnValue)
	require.NoError(t, err)
	require.Equal(t, 12, out.Len())

	assert.Equal(t, "2024-01", out.Value(0, ColumnPeriod))
	assert.Empty(t, out.Value(2, ColumnRollingAverage))
	assert.Equal(t, "2.5", out.Value(3, ColumnRollingAverage))
	assert.Equal(t, "6.5", out.Value(11, ColumnRollingAverage))
}

func TestRollingAverageWindowSlides(t *testing.T) {
	tbl := NewTable([]string{ColumnPeriod, ColumnProvider, ColumnValue}, append(
		monthlySeries("A", 12),
		[]string{"2025-01", "A", "13"},
	))

	out, err := RollingAverage(tbl, ColumnPeriod, []string{ColumnProvider}, ColumnValue)
	require.NoError(t, err)
	// mean of 2..13
	assert.Equal(t, "7.5", out.Value(12, ColumnRollingAverage))
}

func TestRollingAverageGroupsIndependently(t *testing.T) {
	rows := append(monthlySeries("A", 4), monthlySeries("B", 3)...)
	tbl := NewTable([]string{ColumnPeriod, ColumnProvider, ColumnValue}, rows)

	out, err := RollingAverage(tbl, ColumnPeriod, []string{ColumnProvider}, ColumnValue)
	require.NoError(t, err)

	var withAvg []string
	for i := range out.Rows {
		if out.Value(i, ColumnRollingAverage) != "" {
			withAvg = append(withAvg, out.Value(i, ColumnProvider)+"@"+out.Value(i, ColumnPeriod))
		}
	}
	assert.Equal(t, []string{"A@2024-04"}, withAvg)
}

func TestRollingAverageMissingValues(t *testing.T) {
	rows := monthlySeries("A", 5)
	rows[1][2] = "-"
	tbl := NewTable([]string{ColumnPeriod, ColumnProvider, ColumnValue}, rows)

	out, err := RollingAverage(tbl, ColumnPeriod, []string{ColumnProvider}, ColumnValue)
	require.NoError(t, err)
	assert.Empty(t, out.Value(3, ColumnRollingAverage))
	// (1+3+4+5)/4
	assert.Equal(t, "3.25", out.Value(4, ColumnRollingAverage))
}

func TestRollingAverageUnknownColumn(t *testing.T) {
	tbl := NewTable([]string{ColumnPeriod}, nil)
	_, err := RollingAverage(tbl, ColumnPeriod, nil, ColumnValue)
	assert.Error(t, err)
}
