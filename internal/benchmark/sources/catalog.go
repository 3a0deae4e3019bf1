package sources

import (
	"time"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

// DefaultTimeout bounds a single publication download.
const DefaultTimeout = 60 * time.Second

const uploadsBase = "https://www.england.nhs.uk/statistics/wp-content/uploads/sites/2/"

// The catalogs below are hand-curated. To support a new month, add its
// label and URL at the top of the matching list; unlisted periods are
// rejected with benchmark.UnsupportedPeriodError.

var aeMonthlyCatalog = []CatalogEntry{
	{Period: "2025-03", URL: uploadsBase + "2025/04/A-E-Monthly-March-2025.csv"},
	{Period: "2025-02", URL: uploadsBase + "2025/05/A-E-Monthly-February-2025-1.csv"},
	{Period: "2025-01", URL: uploadsBase + "2025/02/A-E-Monthly-January-2025.csv"},
	{Period: "2024-12", URL: uploadsBase + "2025/01/A-E-Monthly-December-2024.csv"},
}

var ambulanceHandoverCatalog = []CatalogEntry{
	{Period: "2025-03", URL: uploadsBase + "2025/03/Web-File-Timeseries-Ambulance-Collection.xlsx"},
}

var acuteDischargeCatalog = []CatalogEntry{
	{Period: "2025-03", URL: uploadsBase + "2025/03/Web-File-Timeseries-Acute-Discharge-SitRep.xlsx"},
}

var rttCatalog = []CatalogEntry{
	{Period: "2025-03", URL: uploadsBase + "2025/07/rtt-full-csv-Mar25.zip"},
	{Period: "2025-02", URL: uploadsBase + "2025/07/rtt-full-csv-Feb25.zip"},
	{Period: "2025-01", URL: uploadsBase + "2025/02/rtt-full-csv-Jan25.zip"},
	{Period: "2024-12", URL: uploadsBase + "2025/01/rtt-full-csv-Dec24.zip"},
}

var kh03Catalog = []CatalogEntry{
	{Period: "2024-25-Q4", URL: uploadsBase + "2025/06/KH03-Q4-2024-25-data-CSV.csv"},
}

// NewAEMonthlySource returns the provider-level A&E attendances and
// emergency admissions monthly CSV.
func NewAEMonthlySource(cache benchmark.Cache, opts ...Option) *PublicationSource {
	return newPublicationSource(benchmark.DatasetAEMonthly, benchmark.FormatCSV, aeMonthlyCatalog, cache, opts...)
}

// NewAmbulanceHandoverSource returns the UEC SitRep ambulance collection
// time series workbook.
func NewAmbulanceHandoverSource(cache benchmark.Cache, opts ...Option) *PublicationSource {
	return newPublicationSource(benchmark.DatasetAmbulanceHandover, benchmark.FormatXLSX, ambulanceHandoverCatalog, cache, opts...)
}

// NewAcuteDischargeSource returns the acute discharge SitRep time series
// workbook (NCTR/MOFD).
func NewAcuteDischargeSource(cache benchmark.Cache, opts ...Option) *PublicationSource {
	return newPublicationSource(benchmark.DatasetAcuteDischarge, benchmark.FormatXLSX, acuteDischargeCatalog, cache, opts...)
}

// NewRTTSource returns the referral-to-treatment full CSV extract (ZIP).
func NewRTTSource(cache benchmark.Cache, opts ...Option) *PublicationSource {
	return newPublicationSource(benchmark.DatasetRTT, benchmark.FormatZIP, rttCatalog, cache, opts...)
}

// NewKH03Source returns the KH03 quarterly bed availability and occupancy
// CSV.
func NewKH03Source(cache benchmark.Cache, opts ...Option) *PublicationSource {
	return newPublicationSource(benchmark.DatasetKH03, benchmark.FormatCSV, kh03Catalog, cache, opts...)
}

// All returns one source per supported dataset sharing cache and options.
func All(cache benchmark.Cache, opts ...Option) []benchmark.Source {
	return []benchmark.Source{
		NewAEMonthlySource(cache, opts...),
		NewAmbulanceHandoverSource(cache, opts...),
		NewAcuteDischargeSource(cache, opts...),
		NewRTTSource(cache, opts...),
		NewKH03Source(cache, opts...),
	}
}
