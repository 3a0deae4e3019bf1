package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

// CatalogEntry maps a period label to the fixed download URL of its
// publication file.
type CatalogEntry struct {
	Period string
	URL    string
}

// PublicationSource implements benchmark.Source for one dataset backed by
// a static catalog of download URLs and a write-once cache.
type PublicationSource struct {
	dataset benchmark.Dataset
	format  benchmark.Format
	catalog []CatalogEntry
	cache   benchmark.Cache
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// Option configures a PublicationSource.
type Option func(*PublicationSource)

// WithCatalog replaces the built-in catalog. Entries must be newest first.
func WithCatalog(entries []CatalogEntry) Option {
	return func(s *PublicationSource) {
		s.catalog = entries
	}
}

// WithHTTPConfig sets the HTTP client and retry settings.
func WithHTTPConfig(cfg HTTPClientConfig) Option {
	return func(s *PublicationSource) {
		s.httpCfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *PublicationSource) {
		s.logger = logger
	}
}

func newPublicationSource(dataset benchmark.Dataset, format benchmark.Format, catalog []CatalogEntry, cache benchmark.Cache, opts ...Option) *PublicationSource {
	s := &PublicationSource{
		dataset: dataset,
		format:  format,
		catalog: catalog,
		cache:   cache,
		httpCfg: DefaultHTTPClientConfig(&http.Client{Timeout: DefaultTimeout}),
		circuit: newCircuitBreaker(string(dataset)),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("source", string(dataset)).Logger()
	return s
}

func (s *PublicationSource) Dataset() benchmark.Dataset { return s.dataset }

func (s *PublicationSource) Format() benchmark.Format { return s.format }

// Periods returns the catalog labels, newest first.
func (s *PublicationSource) Periods() []string {
	out := make([]string, len(s.catalog))
	for i, e := range s.catalog {
		out[i] = e.Period
	}
	return out
}

// CacheKey returns the deterministic cache filename for a period.
func (s *PublicationSource) CacheKey(period string) string {
	return fmt.Sprintf("%s_%s.%s", s.dataset, period, s.format)
}

func (s *PublicationSource) lookup(period string) (CatalogEntry, error) {
	for _, e := range s.catalog {
		if e.Period == period {
			return e, nil
		}
	}
	return CatalogEntry{}, &benchmark.UnsupportedPeriodError{Dataset: s.dataset, Period: period}
}

// Raw returns the publication bytes for period, from cache when present,
// otherwise downloaded and written to cache first.
func (s *PublicationSource) Raw(ctx context.Context, period string) ([]byte, error) {
	entry, err := s.lookup(period)
	if err != nil {
		return nil, err
	}

	key := s.CacheKey(period)
	if s.cache != nil && s.cache.Has(key) {
		data, err := s.cache.Read(key)
		if err != nil {
			return nil, fmt.Errorf("read cache %s: %w", key, err)
		}
		s.logger.Debug().Str("key", key).Msg("cache hit")
		return data, nil
	}

	s.logger.Info().Str("period", period).Str("url", entry.URL).Msg("downloading publication")
	data, err := download(ctx, s.httpCfg, s.circuit, entry.URL)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Write(key, data); err != nil {
			return nil, fmt.Errorf("write cache %s: %w", key, err)
		}
	}
	return data, nil
}

// Fetch returns the parsed publication table for period.
func (s *PublicationSource) Fetch(ctx context.Context, period string) (*benchmark.Table, error) {
	data, err := s.Raw(ctx, period)
	if err != nil {
		return nil, err
	}

	var t *benchmark.Table
	switch s.format {
	case benchmark.FormatCSV:
		t, err = DecodeCSV(bytes.NewReader(data))
	case benchmark.FormatXLSX:
		var isHeader func([]string) bool
		if schema, ok := benchmark.SchemaFor(s.dataset); ok {
			isHeader = schema.IsHeader
		}
		t, err = DecodeWorkbook(data, isHeader)
	case benchmark.FormatZIP:
		t, err = DecodeZip(data)
	default:
		err = fmt.Errorf("unsupported format %q", s.format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", s.dataset, period, err)
	}
	return t, nil
}
