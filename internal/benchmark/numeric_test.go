package benchmark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234", 1234, true},
		{" 95.2% ", 95.2, true},
		{"12\u00a0345", 12345, true},
		{"-3.5", -3.5, true},
		{"", 0, false},
		{"-", 0, false},
		{"*", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-03-17", time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)},
		{"17/03/2025", time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)},
		{"March 2025", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"Mar-25", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-25-Q1", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-25-Q4", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParsePeriod("someday")
	assert.Error(t, err)
	_, err = ParsePeriod("2024-25-Q5")
	assert.Error(t, err)
}
