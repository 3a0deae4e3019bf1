package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, url, 2)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s, err := NewPostgresStore(ctx, pool)
	require.NoError(t, err)
	return s
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	key := attendances
	key.Provider = "Test Trust " + uuid.NewString()
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `DELETE FROM benchmark_observations WHERE provider = $1`, key.Provider)
	})

	now := time.Now().UTC().Truncate(time.Microsecond)
	obs := []benchmark.Observation{observation(1, 10, now), observation(2, 20, now)}
	for i := range obs {
		obs[i].Provider = key.Provider
		obs[i].RunID = "run-1"
	}
	require.NoError(t, s.Save(ctx, obs))

	obs[1].Value = 21
	require.NoError(t, s.Save(ctx, obs[1:]))

	latest, err := s.Latest(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "2025-02", latest.Period)
	assert.Equal(t, 21.0, latest.Value)
	assert.True(t, now.Equal(latest.FetchedAt))

	got, err := s.Range(ctx, key, time.Time{}, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-01", got[0].Period)
}

func TestPostgresStoreNotFound(t *testing.T) {
	s := newTestPostgresStore(t)

	key := attendances
	key.Provider = "missing " + uuid.NewString()
	_, err := s.Latest(context.Background(), key)
	assert.True(t, errors.Is(err, ErrNotFound))
}
