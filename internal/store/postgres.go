package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

const createObservationsTable = `
CREATE TABLE IF NOT EXISTS benchmark_observations (
	dataset      TEXT             NOT NULL,
	period       TEXT             NOT NULL,
	period_start TIMESTAMPTZ      NOT NULL,
	provider     TEXT             NOT NULL,
	metric       TEXT             NOT NULL,
	value        DOUBLE PRECISION NOT NULL,
	run_id       TEXT             NOT NULL,
	fetched_at   TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (dataset, period, provider, metric)
)`

const upsertObservation = `
INSERT INTO benchmark_observations
	(dataset, period, period_start, provider, metric, value, run_id, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (dataset, period, provider, metric) DO UPDATE SET
	period_start = EXCLUDED.period_start,
	value        = EXCLUDED.value,
	run_id       = EXCLUDED.run_id,
	fetched_at   = EXCLUDED.fetched_at`

const selectColumns = `dataset, period, period_start, provider, metric, value, run_id, fetched_at`

// PostgresStore persists observations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewPostgresStore ensures the observations table exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, createObservationsTable); err != nil {
		return nil, fmt.Errorf("create observations table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Save upserts observations in a single batch.
func (s *PostgresStore) Save(ctx context.Context, obs []benchmark.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(upsertObservation,
			string(o.Dataset), o.Period, o.PeriodStart, o.Provider, o.Metric, o.Value, o.RunID, o.FetchedAt)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save observations: %w", err)
	}
	return nil
}

// Latest returns the observation with the most recent period.
func (s *PostgresStore) Latest(ctx context.Context, key benchmark.SeriesKey) (benchmark.Observation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM benchmark_observations
		 WHERE dataset = $1 AND lower(provider) = lower($2) AND metric = $3
		 ORDER BY period_start DESC LIMIT 1`,
		string(key.Dataset), key.Provider, key.Metric)

	o, err := scanObservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return benchmark.Observation{}, ErrNotFound
	}
	return o, err
}

// Range returns observations whose period starts between from and to
// (inclusive). A zero bound leaves that side open.
func (s *PostgresStore) Range(ctx context.Context, key benchmark.SeriesKey, from, to time.Time) ([]benchmark.Observation, error) {
	var fromArg, toArg *time.Time
	if !from.IsZero() {
		fromArg = &from
	}
	if !to.IsZero() {
		toArg = &to
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM benchmark_observations
		 WHERE dataset = $1 AND lower(provider) = lower($2) AND metric = $3
		   AND ($4::timestamptz IS NULL OR period_start >= $4)
		   AND ($5::timestamptz IS NULL OR period_start <= $5)
		 ORDER BY period_start`,
		string(key.Dataset), key.Provider, key.Metric, fromArg, toArg)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []benchmark.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func scanObservation(row pgx.Row) (benchmark.Observation, error) {
	var (
		o       benchmark.Observation
		dataset string
	)
	if err := row.Scan(&dataset, &o.Period, &o.PeriodStart, &o.Provider, &o.Metric, &o.Value, &o.RunID, &o.FetchedAt); err != nil {
		return benchmark.Observation{}, err
	}
	o.Dataset = benchmark.Dataset(dataset)
	o.PeriodStart = o.PeriodStart.UTC()
	o.FetchedAt = o.FetchedAt.UTC()
	return o, nil
}
