package benchmark

import (
	"fmt"
	"strings"

	"github.com/i474232898/hospital-flow/internal/common"
)

// ColumnMatcher inspects a header and returns the first column it accepts.
type ColumnMatcher interface {
	Match(columns []string) (string, bool)
	String() string
}

type exactMatcher struct {
	synonyms map[string]struct{}
	names    []string
}

// Exact matches the first column whose trimmed, lowercased name is one of
// the synonyms.
func Exact(synonyms ...string) ColumnMatcher {
	m := exactMatcher{synonyms: make(map[string]struct{}, len(synonyms)), names: synonyms}
	for _, s := range synonyms {
		m.synonyms[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return m
}

func (m exactMatcher) Match(columns []string) (string, bool) {
	for _, c := range columns {
		if _, ok := m.synonyms[strings.ToLower(strings.TrimSpace(c))]; ok {
			return c, true
		}
	}
	return "", false
}

func (m exactMatcher) String() string {
	return fmt.Sprintf("exact%q", m.names)
}

type containsMatcher struct {
	fragment string
	exclude  []string
}

// Contains matches the first column whose lowercased name contains
// fragment and none of the excluded fragments.
func Contains(fragment string, exclude ...string) ColumnMatcher {
	lowered := make([]string, len(exclude))
	for i, e := range exclude {
		lowered[i] = strings.ToLower(e)
	}
	return containsMatcher{fragment: strings.ToLower(fragment), exclude: lowered}
}

func (m containsMatcher) Match(columns []string) (string, bool) {
	for _, c := range columns {
		lc := strings.ToLower(c)
		if strings.Contains(lc, m.fragment) && !common.HasAny(lc, m.exclude...) {
			return c, true
		}
	}
	return "", false
}

func (m containsMatcher) String() string {
	if len(m.exclude) == 0 {
		return fmt.Sprintf("contains(%q)", m.fragment)
	}
	return fmt.Sprintf("contains(%q, excluding %q)", m.fragment, m.exclude)
}

type namedMatcher string

// Named matches a single column by its exact name.
func Named(name string) ColumnMatcher { return namedMatcher(name) }

func (m namedMatcher) Match(columns []string) (string, bool) {
	for _, c := range columns {
		if c == string(m) {
			return c, true
		}
	}
	return "", false
}

func (m namedMatcher) String() string { return fmt.Sprintf("named(%q)", string(m)) }

// Schema describes how to recover stable fields from one dataset whose
// column names drift between publications.
type Schema struct {
	Dataset Dataset
	// Provider matchers are tried in order; the first match wins.
	Provider []ColumnMatcher
	// MetricKeywords select metric columns by lowercase substring.
	MetricKeywords []string
}

// ResolveProviderColumn returns the column holding provider identity.
func (s Schema) ResolveProviderColumn(columns []string) (string, error) {
	for _, m := range s.Provider {
		if c, ok := m.Match(columns); ok {
			return c, nil
		}
	}
	return "", &SchemaError{Dataset: s.Dataset, Field: "provider", Columns: columns}
}

// IsHeader reports whether columns can be the header row of this dataset:
// a provider column resolves and at least one column names a metric.
func (s Schema) IsHeader(columns []string) bool {
	if _, err := s.ResolveProviderColumn(columns); err != nil {
		return false
	}
	return len(s.MetricColumns(&Table{Columns: columns})) > 0
}

// Normalize copies the resolved provider column into the canonical
// PROVIDER column.
func (s Schema) Normalize(t *Table) (*Table, error) {
	col, err := s.ResolveProviderColumn(t.Columns)
	if err != nil {
		return nil, err
	}
	idx := t.Index(col)
	return t.WithColumn(ColumnProvider, func(row []string) string {
		return strings.TrimSpace(row[idx])
	}), nil
}

// MetricColumns returns the columns whose names contain one of the
// schema's keywords. The result varies between periods.
func (s Schema) MetricColumns(t *Table) []string {
	var out []string
	for _, c := range t.Columns {
		if c == ColumnProvider || c == ColumnPeriod {
			continue
		}
		if common.HasAny(strings.ToLower(c), s.MetricKeywords...) {
			out = append(out, c)
		}
	}
	return out
}

// Project keeps period, PROVIDER and the metric columns.
func (s Schema) Project(t *Table) (*Table, []string) {
	metrics := s.MetricColumns(t)
	cols := append([]string{ColumnPeriod, ColumnProvider}, metrics...)
	return t.Select(cols...), metrics
}

var schemas = map[Dataset]Schema{
	DatasetAEMonthly: {
		Dataset: DatasetAEMonthly,
		Provider: []ColumnMatcher{
			Exact("provider code", "provider", "provider_name", "organisation"),
			Named("Provider Name"),
		},
		MetricKeywords: []string{"attend", "within 4", "emergency admissions", "% within 4"},
	},
	DatasetAmbulanceHandover: {
		Dataset: DatasetAmbulanceHandover,
		Provider: []ColumnMatcher{
			Contains("provider", "code"),
			Contains("organisation"),
		},
		MetricKeywords: []string{"handover", "arrival", "delay", "hours lost"},
	},
	DatasetAcuteDischarge: {
		Dataset: DatasetAcuteDischarge,
		Provider: []ColumnMatcher{
			Contains("provider", "code"),
		},
		MetricKeywords: []string{"criteria to reside", "nctr", "mofd", "discharg"},
	},
	DatasetRTT: {
		Dataset: DatasetRTT,
		Provider: []ColumnMatcher{
			Exact("provider org name", "provider name"),
			Contains("provider", "code"),
		},
		MetricKeywords: []string{"incomplete", "52", "65", "78", "wait"},
	},
	DatasetKH03: {
		Dataset: DatasetKH03,
		Provider: []ColumnMatcher{
			Exact("org name", "organisation name", "name"),
			Contains("name"),
		},
		MetricKeywords: []string{"bed", "occupied", "available"},
	},
}

// SchemaFor returns the normalization rules for a dataset.
func SchemaFor(d Dataset) (Schema, bool) {
	s, ok := schemas[d]
	return s, ok
}
