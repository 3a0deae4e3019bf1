package sources

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/i474232898/hospital-flow/internal/benchmark"
	"github.com/i474232898/hospital-flow/internal/store"
)

const aeCSV = "\xEF\xBB\xBFPeriod,Org Code,Parent Org,Org name,A&E attendances Type 1\n" +
	"MSitAE-MARCH-2025,RHU,NHS England South East,Portsmouth Hospitals University NHS Trust,\"12,000\"\n" +
	",,,,\n" +
	"MSitAE-MARCH-2025,R1F,NHS England South East,Isle of Wight NHS Trust,3000\n"

func newTestServer(t *testing.T, body []byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOptions(srv *httptest.Server, period string) []Option {
	return []Option{
		WithCatalog([]CatalogEntry{{Period: period, URL: srv.URL + "/file"}}),
		WithHTTPConfig(DefaultHTTPClientConfig(srv.Client())),
	}
}

func TestFetchCachesDownload(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, []byte(aeCSV), &hits)

	cache, err := store.NewDiskCache(t.TempDir())
	require.NoError(t, err)
	src := NewAEMonthlySource(cache, testOptions(srv, "2025-03")...)

	first, err := src.Raw(context.Background(), "2025-03")
	require.NoError(t, err)
	require.True(t, cache.Has("ae-monthly_2025-03.csv"))

	second, err := src.Raw(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	tbl, err := src.Fetch(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, []string{"Period", "Org Code", "Parent Org", "Org name", "A&E attendances Type 1"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "12,000", tbl.Value(0, "A&E attendances Type 1"))
}

func TestFetchUnsupportedPeriodMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, []byte(aeCSV), &hits)

	cache := store.NewMemoryCache()
	src := NewAEMonthlySource(cache, testOptions(srv, "2025-03")...)

	_, err := src.Fetch(context.Background(), "2099-01")
	require.Error(t, err)
	assert.True(t, errors.Is(err, benchmark.ErrUnsupportedPeriod))

	var upe *benchmark.UnsupportedPeriodError
	require.True(t, errors.As(err, &upe))
	assert.Equal(t, "2099-01", upe.Period)
	assert.Equal(t, int32(0), hits.Load())
	assert.False(t, cache.Has(src.CacheKey("2099-01")))
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	cache := store.NewMemoryCache()
	src := NewKH03Source(cache, testOptions(srv, "2024-25-Q4")...)

	_, err := src.Fetch(context.Background(), "2024-25-Q4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, benchmark.ErrTransport))

	var te *benchmark.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.False(t, cache.Has(src.CacheKey("2024-25-Q4")), "failed downloads are not cached")
}

func TestFetchCancelledContext(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, []byte(aeCSV), &hits)
	src := NewAEMonthlySource(store.NewMemoryCache(), testOptions(srv, "2025-03")...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Fetch(ctx, "2025-03")
	assert.True(t, errors.Is(err, benchmark.ErrTransport))
	assert.True(t, errors.Is(err, context.Canceled))
}

func workbookFixture(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetName("Sheet1", "Provider Level Data"))
	sheet := "Provider Level Data"
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Ambulance Collection, March 2025"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Provider Code", "Provider Name", "Handovers > 60 mins"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"RHU", "Portsmouth Hospitals University NHS Trust", "42"}))
	require.NoError(t, f.SetSheetRow(sheet, "A6", &[]interface{}{"RHM", "University Hospital Southampton NHS Foundation Trust", "17"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeWorkbook(t *testing.T) {
	tbl, err := DecodeWorkbook(workbookFixture(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Provider Code", "Provider Name", "Handovers > 60 mins"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "17", tbl.Value(1, "Handovers > 60 mins"))
}

func titleBlockWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Title:", "Ambulance Collection (AmbSYS)"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Period:", "March 2025"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Source:", "NHS England"}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]interface{}{"Provider Code", "Provider Name", "Handovers > 60 mins"}))
	require.NoError(t, f.SetSheetRow(sheet, "A6", &[]interface{}{"RHU", "Portsmouth Hospitals University NHS Trust", "42"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeWorkbookSkipsTitleBlock(t *testing.T) {
	schema, _ := benchmark.SchemaFor(benchmark.DatasetAmbulanceHandover)

	tbl, err := DecodeWorkbook(titleBlockWorkbook(t), schema.IsHeader)
	require.NoError(t, err)
	assert.Equal(t, []string{"Provider Code", "Provider Name", "Handovers > 60 mins"}, tbl.Columns)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "42", tbl.Value(0, "Handovers > 60 mins"))

	// Without a header check the first label/value pair wins.
	tbl, err = DecodeWorkbook(titleBlockWorkbook(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Title:", "Ambulance Collection (AmbSYS)"}, tbl.Columns)
}

func TestFetchWorkbookWithTitleBlock(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, titleBlockWorkbook(t), &hits)
	src := NewAmbulanceHandoverSource(store.NewMemoryCache(), testOptions(srv, "2025-03")...)

	tbl, err := src.Fetch(context.Background(), "2025-03")
	require.NoError(t, err)

	schema, _ := benchmark.SchemaFor(benchmark.DatasetAmbulanceHandover)
	out, err := schema.Normalize(tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, benchmark.FilterPeers(out, benchmark.PeerSet{"portsmouth"}).Len())
}

func TestFetchWorkbookSource(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, workbookFixture(t), &hits)
	src := NewAmbulanceHandoverSource(store.NewMemoryCache(), testOptions(srv, "2025-03")...)

	tbl, err := src.Fetch(context.Background(), "2025-03")
	require.NoError(t, err)

	schema, _ := benchmark.SchemaFor(benchmark.DatasetAmbulanceHandover)
	out, err := schema.Normalize(tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, benchmark.FilterPeers(out, benchmark.PeerSet{"portsmouth"}).Len())
}

func zipFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	_, err := zw.Create("docs/")
	require.NoError(t, err)
	w, err := zw.Create("docs/readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("not a table"))
	require.NoError(t, err)
	w, err = zw.Create("20250331-RTT-March-2025-full-extract-provider.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("Provider Org Code,Provider Org Name,Total number of incomplete pathways\nRHU,Portsmouth Hospitals University NHS Trust,50000\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecodeZip(t *testing.T) {
	tbl, err := DecodeZip(zipFixture(t))
	require.NoError(t, err)

	assert.Equal(t, "Provider Org Name", tbl.Columns[1])
	assert.Equal(t, "50000", tbl.Value(0, "Total number of incomplete pathways"))
}

func TestDecodeZipErrors(t *testing.T) {
	_, err := DecodeZip([]byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, zip.NewWriter(&buf).Close())
	_, err = DecodeZip(buf.Bytes())
	assert.Error(t, err)
}

func TestDecodeCSVEmpty(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestAllCoversEveryDataset(t *testing.T) {
	srcs := All(store.NewMemoryCache())
	require.Len(t, srcs, len(benchmark.Datasets()))
	for i, d := range benchmark.Datasets() {
		assert.Equal(t, d, srcs[i].Dataset())
		assert.NotEmpty(t, srcs[i].Periods())
	}
	assert.Equal(t, "rtt_2025-03.zip", NewRTTSource(nil).CacheKey("2025-03"))
}

func flakyServer(t *testing.T, failures int32, status int, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= failures {
			http.Error(w, "unavailable", status)
			return
		}
		_, _ = w.Write([]byte(aeCSV))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func retryOptions(srv *httptest.Server, retries int) []Option {
	cfg := DefaultHTTPClientConfig(srv.Client())
	cfg.Backoff.MaxRetries = retries
	cfg.Backoff.InitialInterval = time.Millisecond
	cfg.Backoff.MaxInterval = 5 * time.Millisecond
	return []Option{
		WithCatalog([]CatalogEntry{{Period: "2025-03", URL: srv.URL + "/file"}}),
		WithHTTPConfig(cfg),
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := flakyServer(t, 1, http.StatusServiceUnavailable, &hits)
	src := NewAEMonthlySource(store.NewMemoryCache(), retryOptions(srv, 1)...)

	tbl, err := src.Fetch(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchNoRetriesByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := flakyServer(t, 1, http.StatusServiceUnavailable, &hits)
	src := NewAEMonthlySource(store.NewMemoryCache(), testOptions(srv, "2025-03")...)

	_, err := src.Fetch(context.Background(), "2025-03")
	var te *benchmark.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := flakyServer(t, 5, http.StatusNotFound, &hits)
	src := NewAEMonthlySource(store.NewMemoryCache(), retryOptions(srv, 3)...)

	_, err := src.Fetch(context.Background(), "2025-03")
	assert.True(t, errors.Is(err, benchmark.ErrTransport))
	assert.Equal(t, int32(1), hits.Load())
}
