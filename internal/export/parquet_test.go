package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

func sampleResult() *benchmark.Result {
	tbl := benchmark.NewTable(
		[]string{benchmark.ColumnPeriod, benchmark.ColumnProvider, "Total beds available", "Total beds occupied"},
		[][]string{
			{"2024-25-Q4", "Trust A", "1,200", "1,100"},
			{"2024-25-Q4", "Trust B", "800", "-"},
		},
	)
	return &benchmark.Result{
		Dataset:       benchmark.DatasetKH03,
		Periods:       []string{"2024-25-Q4"},
		MetricColumns: []string{"Total beds available", "Total beds occupied"},
		Table:         tbl,
	}
}

func TestRows(t *testing.T) {
	rows := Rows(sampleResult())
	require.Len(t, rows, 4)

	assert.Equal(t, "Trust A", rows[0].Provider)
	require.NotNil(t, rows[0].Value)
	assert.Equal(t, 1200.0, *rows[0].Value)
	assert.Nil(t, rows[3].Value)
	assert.Equal(t, "-", rows[3].Raw)

	assert.Empty(t, Rows(nil))
}

func TestWriteReadable(t *testing.T) {
	var buf bytes.Buffer
	n, err := Write(&buf, sampleResult())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := parquet.Read[MetricRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "kh03", got[2].Dataset)
	assert.Equal(t, "Trust B", got[2].Provider)
	assert.Equal(t, 800.0, *got[2].Value)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kh03.parquet")
	n, err := WriteFile(path, sampleResult())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
