package benchmark

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseNumber parses publication cells such as "1,234", "95.2%" or
// " 12 ". Suppressed or missing markers ("-", "*", "") are not numbers.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00a0", "")
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	"2006-01",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2006/01/02",
	"January 2006",
	"Jan-06",
}

// ParsePeriod parses a period or date label. Besides calendar dates it
// accepts financial-year quarters such as "2024-25-Q4", which start in
// April: Q4 of 2024-25 begins January 2025.
func ParsePeriod(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}

	var startYear, endYear, quarter int
	if _, err := fmt.Sscanf(s, "%4d-%2d-Q%1d", &startYear, &endYear, &quarter); err == nil && quarter >= 1 && quarter <= 4 {
		month := time.Month(4 + 3*(quarter-1))
		year := startYear
		if month > 12 {
			month -= 12
			year++
		}
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("unrecognised period %q", s)
}
