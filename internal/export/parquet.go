// Package export writes normalized benchmark tables to columnar files.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

const flushInterval = 100_000

// MetricRow is the Parquet schema for one provider metric cell.
// One row per (period, provider, metric); Value is null when the raw cell
// is not numeric.
type MetricRow struct {
	Dataset  string   `parquet:"dataset"`
	Period   string   `parquet:"period"`
	Provider string   `parquet:"provider"`
	Metric   string   `parquet:"metric"`
	Value    *float64 `parquet:"value,optional"`
	Raw      string   `parquet:"raw"`
}

// Rows melts a fetch result into Parquet rows.
func Rows(res *benchmark.Result) []MetricRow {
	if res == nil || res.Table == nil {
		return nil
	}
	t := res.Table
	var out []MetricRow
	for i := range t.Rows {
		for _, m := range res.MetricColumns {
			raw := t.Value(i, m)
			row := MetricRow{
				Dataset:  string(res.Dataset),
				Period:   t.Value(i, benchmark.ColumnPeriod),
				Provider: t.Value(i, benchmark.ColumnProvider),
				Metric:   m,
				Raw:      raw,
			}
			if v, ok := benchmark.ParseNumber(raw); ok {
				row.Value = &v
			}
			out = append(out, row)
		}
	}
	return out
}

// Write encodes res as Snappy-compressed Parquet to w and returns the
// number of rows written.
func Write(w io.Writer, res *benchmark.Result) (int, error) {
	writer := parquet.NewGenericWriter[MetricRow](w,
		parquet.Compression(&parquet.Snappy),
	)

	count := 0
	for _, row := range Rows(res) {
		if _, err := writer.Write([]MetricRow{row}); err != nil {
			return count, fmt.Errorf("write metric row: %w", err)
		}
		count++
		if count%flushInterval == 0 {
			if err := writer.Flush(); err != nil {
				return count, fmt.Errorf("flush metric rows: %w", err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return count, fmt.Errorf("close metric writer: %w", err)
	}
	return count, nil
}

// WriteFile writes res to a Parquet file at path.
func WriteFile(path string, res *benchmark.Result) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create metric parquet: %w", err)
	}
	n, err := Write(file, res)
	if err != nil {
		file.Close()
		return n, err
	}
	return n, file.Close()
}
