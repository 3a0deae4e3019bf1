package benchmark

import (
	"strings"
	"time"

	"github.com/i474232898/hospital-flow/internal/common"
)

// Dataset identifies a public NHS England statistical publication.
type Dataset string

const (
	DatasetAEMonthly         Dataset = "ae-monthly"
	DatasetAmbulanceHandover Dataset = "ambulance-handover"
	DatasetAcuteDischarge    Dataset = "acute-discharge"
	DatasetRTT               Dataset = "rtt"
	DatasetKH03              Dataset = "kh03"
)

// Datasets returns every supported dataset in display order.
func Datasets() []Dataset {
	return []Dataset{
		DatasetAEMonthly,
		DatasetAmbulanceHandover,
		DatasetAcuteDischarge,
		DatasetRTT,
		DatasetKH03,
	}
}

// Format is the on-the-wire format of a publication file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatZIP  Format = "zip"
)

// Canonical columns attached to every normalized table.
const (
	ColumnProvider = "PROVIDER"
	ColumnPeriod   = "period"
)

// Period selectors accepted in place of a concrete period label.
const (
	PeriodLatest = "latest"
	PeriodAll    = "all"
)

// PeerSet is an ordered list of free-text provider name fragments or
// organisation codes. An empty set means no filtering.
type PeerSet []string

// ParsePeers splits a comma-separated peer list.
func ParsePeers(s string) PeerSet {
	return PeerSet(common.SplitList(s))
}

// With returns a copy of the set with token appended when it is non-blank.
func (p PeerSet) With(token string) PeerSet {
	out := make(PeerSet, 0, len(p)+1)
	out = append(out, p...)
	if t := strings.TrimSpace(token); t != "" {
		out = append(out, t)
	}
	return out
}

// ProviderRecord is one normalized row of a fetched table.
type ProviderRecord struct {
	Provider string            `json:"provider"`
	Period   string            `json:"period"`
	Values   map[string]string `json:"values"`
}

// Result is the outcome of a fetch: a normalized, peer-filtered and
// projected table. Empty is set when filtering left no rows.
type Result struct {
	Dataset       Dataset  `json:"dataset"`
	Periods       []string `json:"periods"`
	Peers         PeerSet  `json:"peers"`
	MetricColumns []string `json:"metricColumns"`
	Empty         bool     `json:"empty"`
	Table         *Table   `json:"-"`
}

// Records returns the result rows as provider records.
func (r *Result) Records() []ProviderRecord {
	if r == nil || r.Table == nil {
		return nil
	}
	return r.Table.Records()
}

// Observation is a single numeric metric value for a provider and period,
// the long-format unit persisted by observation stores.
type Observation struct {
	RunID       string    `json:"runId"`
	Dataset     Dataset   `json:"dataset"`
	Period      string    `json:"period"`
	PeriodStart time.Time `json:"periodStart"`
	Provider    string    `json:"provider"`
	Metric      string    `json:"metric"`
	Value       float64   `json:"value"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// SeriesKey identifies one metric time series for one provider.
type SeriesKey struct {
	Dataset  Dataset `json:"dataset"`
	Provider string  `json:"provider"`
	Metric   string  `json:"metric"`
}

// Key returns a canonical string key for indexing this series in stores.
func (k SeriesKey) Key() string {
	return string(k.Dataset) + "|" + strings.ToLower(k.Provider) + "|" + k.Metric
}

// Key returns the series key this observation belongs to.
func (o Observation) Key() SeriesKey {
	return SeriesKey{Dataset: o.Dataset, Provider: o.Provider, Metric: o.Metric}
}

// DatasetInfo describes a dataset's catalog for listing.
type DatasetInfo struct {
	Dataset Dataset  `json:"dataset"`
	Format  Format   `json:"format"`
	Periods []string `json:"periods"`
}

// RankedProvider is one row of a peer comparison.
type RankedProvider struct {
	Rank     int     `json:"rank"`
	Provider string  `json:"provider"`
	Value    float64 `json:"value"`
	IsMain   bool    `json:"isMain"`
}

// Comparison ranks peers against a main provider on a single metric.
type Comparison struct {
	Dataset Dataset          `json:"dataset"`
	Periods []string         `json:"periods"`
	Metric  string           `json:"metric"`
	Main    string           `json:"main"`
	Ranking []RankedProvider `json:"ranking"`
}

// NormaliseProviderName strips legal-entity suffixes so the same trust can
// be matched across publications that spell it differently.
func NormaliseProviderName(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "NHS FOUNDATION TRUST", "")
	s = strings.ReplaceAll(s, "NHS TRUST", "")
	return strings.ToLower(strings.TrimSpace(s))
}
