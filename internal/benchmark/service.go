package benchmark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// maxParallelPeriods bounds concurrent downloads when a request spans the
// whole catalog of a dataset.
const maxParallelPeriods = 4

// Service orchestrates sources, normalization, peer filtering and the
// observation store.
type Service struct {
	sources map[Dataset]Source
	order   []Dataset
	store   ObservationStore
	logger  zerolog.Logger

	// inflight collapses concurrent fetches of the same dataset period so a
	// cold cache key is downloaded once.
	inflight singleflight.Group
}

// NewService creates a new Service. store may be nil when history is not
// needed.
func NewService(store ObservationStore, sources []Source, logger zerolog.Logger) *Service {
	s := &Service{
		sources: make(map[Dataset]Source, len(sources)),
		store:   store,
		logger:  logger.With().Str("component", "benchmark").Logger(),
	}
	for _, src := range sources {
		if _, dup := s.sources[src.Dataset()]; !dup {
			s.order = append(s.order, src.Dataset())
		}
		s.sources[src.Dataset()] = src
	}
	return s
}

// Catalog lists every registered dataset with its supported periods.
func (s *Service) Catalog() []DatasetInfo {
	out := make([]DatasetInfo, 0, len(s.order))
	for _, d := range s.order {
		src := s.sources[d]
		out = append(out, DatasetInfo{Dataset: d, Format: src.Format(), Periods: src.Periods()})
	}
	return out
}

// ResolvePeriods expands "latest", "all" or a concrete label into catalog
// periods. Unlisted labels fail without touching the network or cache.
func (s *Service) ResolvePeriods(dataset Dataset, period string) ([]string, error) {
	src, err := s.source(dataset)
	if err != nil {
		return nil, err
	}
	return resolvePeriods(src, period)
}

func resolvePeriods(src Source, period string) ([]string, error) {
	periods := src.Periods()
	p := strings.TrimSpace(period)
	switch strings.ToLower(p) {
	case "", PeriodLatest:
		if len(periods) == 0 {
			return nil, &UnsupportedPeriodError{Dataset: src.Dataset(), Period: PeriodLatest}
		}
		return periods[:1], nil
	case PeriodAll:
		if len(periods) == 0 {
			return nil, &UnsupportedPeriodError{Dataset: src.Dataset(), Period: PeriodAll}
		}
		return append([]string(nil), periods...), nil
	}
	for _, known := range periods {
		if known == p {
			return []string{p}, nil
		}
	}
	return nil, &UnsupportedPeriodError{Dataset: src.Dataset(), Period: p}
}

// Fetch downloads (or reads from cache) the requested periods, normalizes
// provider identity, filters to peers and projects the metric columns.
func (s *Service) Fetch(ctx context.Context, dataset Dataset, period string, peers PeerSet) (*Result, error) {
	src, err := s.source(dataset)
	if err != nil {
		return nil, err
	}
	schema, ok := SchemaFor(dataset)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no schema", ErrUnknownDataset, dataset)
	}
	periods, err := resolvePeriods(src, period)
	if err != nil {
		return nil, err
	}

	tables := make([]*Table, len(periods))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPeriods)
	for i, p := range periods {
		g.Go(func() error {
			raw, err := s.fetchOne(gctx, src, p)
			if err != nil {
				return err
			}
			normalized, err := schema.Normalize(raw)
			if err != nil {
				return err
			}
			tables[i] = normalized.WithColumn(ColumnPeriod, func([]string) string { return p })
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	filtered := FilterPeers(Concat(tables...), peers)
	projected, metrics := schema.Project(filtered)

	s.logger.Debug().
		Str("dataset", string(dataset)).
		Strs("periods", periods).
		Int("rows", projected.Len()).
		Int("metrics", len(metrics)).
		Msg("fetched publication")

	return &Result{
		Dataset:       dataset,
		Periods:       periods,
		Peers:         peers,
		MetricColumns: metrics,
		Empty:         projected.Len() == 0,
		Table:         projected,
	}, nil
}

// fetchOne joins or starts the shared download of one dataset period. The
// download runs detached from any single caller, so a caller that gives up
// (a cancelled request, a failed sibling period) does not fail the callers
// joined to the same key. Each caller still stops waiting when its own ctx
// ends.
func (s *Service) fetchOne(ctx context.Context, src Source, period string) (*Table, error) {
	key := string(src.Dataset()) + "/" + period
	shared := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		return src.Fetch(shared, period)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug().Str("key", key).Msg("joined in-flight fetch")
		}
		return res.Val.(*Table), nil
	}
}

// CompareRequest selects a metric and the providers to rank.
type CompareRequest struct {
	Dataset Dataset
	Period  string
	Metric  string
	Main    string
	Peers   PeerSet
}

// Compare ranks the main provider and its peers on one metric.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (*Comparison, error) {
	if strings.TrimSpace(req.Main) == "" {
		return nil, errors.New("compare: main provider is required")
	}
	res, err := s.Fetch(ctx, req.Dataset, req.Period, req.Peers.With(req.Main))
	if err != nil {
		return nil, err
	}
	schema, _ := SchemaFor(req.Dataset)
	valued, candidates, err := schema.CoalesceMetric(res.Table, req.Metric)
	if err != nil {
		return nil, err
	}
	return &Comparison{
		Dataset: req.Dataset,
		Periods: res.Periods,
		Metric:  candidates[0],
		Main:    req.Main,
		Ranking: Rank(valued, ColumnValue, req.Main),
	}, nil
}

// Rolling computes the trailing 12-period average of a metric per provider
// across every catalog period of the dataset. Sub-rows of one provider are
// combined into a single value per period first.
func (s *Service) Rolling(ctx context.Context, dataset Dataset, metric string, peers PeerSet) (*Table, string, error) {
	res, err := s.Fetch(ctx, dataset, PeriodAll, peers)
	if err != nil {
		return nil, "", err
	}
	schema, _ := SchemaFor(dataset)
	valued, candidates, err := schema.CoalesceMetric(res.Table, metric)
	if err != nil {
		return nil, "", err
	}
	agg := AggregationFor(candidates[0])
	series := aggregateProviders(valued, []string{ColumnValue}, func(string) Aggregation { return agg })
	out, err := RollingAverage(series, ColumnPeriod, []string{ColumnProvider}, ColumnValue)
	if err != nil {
		return nil, "", err
	}
	return out, candidates[0], nil
}

// RefreshReport summarizes one refresh run.
type RefreshReport struct {
	RunID  string             `json:"runId"`
	Saved  int                `json:"saved"`
	Failed map[Dataset]string `json:"failed,omitempty"`
}

// Refresh fetches the latest period of every dataset for peers and saves
// one observation per provider and metric to the observation store. A failing dataset is logged
// and skipped; an error is returned only when every dataset failed.
func (s *Service) Refresh(ctx context.Context, peers PeerSet) (RefreshReport, error) {
	report := RefreshReport{RunID: uuid.NewString(), Failed: make(map[Dataset]string)}
	if s.store == nil {
		return report, errors.New("refresh: no observation store configured")
	}
	if len(s.order) == 0 {
		return report, errors.New("refresh: no sources configured")
	}

	now := time.Now().UTC()
	for _, d := range s.order {
		res, err := s.Fetch(ctx, d, PeriodLatest, peers)
		if err != nil {
			s.logger.Warn().Err(err).Str("dataset", string(d)).Str("run_id", report.RunID).Msg("refresh fetch failed")
			report.Failed[d] = err.Error()
			continue
		}
		obs := Melt(AggregateProviders(res.Table, res.MetricColumns), d, res.MetricColumns)
		for i := range obs {
			obs[i].RunID = report.RunID
			obs[i].FetchedAt = now
		}
		if err := s.store.Save(ctx, obs); err != nil {
			s.logger.Warn().Err(err).Str("dataset", string(d)).Str("run_id", report.RunID).Msg("refresh save failed")
			report.Failed[d] = err.Error()
			continue
		}
		report.Saved += len(obs)
	}

	s.logger.Info().
		Str("run_id", report.RunID).
		Int("saved", report.Saved).
		Int("failed", len(report.Failed)).
		Msg("refresh completed")

	if len(report.Failed) == len(s.order) {
		return report, fmt.Errorf("refresh: all %d datasets failed", len(s.order))
	}
	return report, nil
}

// Latest delegates to the underlying store.
func (s *Service) Latest(ctx context.Context, key SeriesKey) (Observation, error) {
	if s.store == nil {
		return Observation{}, errors.New("no observation store configured")
	}
	return s.store.Latest(ctx, key)
}

// History delegates to the underlying store.
func (s *Service) History(ctx context.Context, key SeriesKey, from, to time.Time) ([]Observation, error) {
	if s.store == nil {
		return nil, errors.New("no observation store configured")
	}
	return s.store.Range(ctx, key, from, to)
}

func (s *Service) source(d Dataset) (Source, error) {
	src, ok := s.sources[d]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, d)
	}
	return src, nil
}
