package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

var (
	// ErrNotFound is returned when no observations exist for a series.
	ErrNotFound = errors.New("no observations for series")
)

// SeriesHistory holds the observations of one series ordered by period.
type SeriesHistory struct {
	Observations []benchmark.Observation
}

// MemoryStore is a concurrency-safe in-memory observation store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: series key, value: history
	data map[string]*SeriesHistory

	// retention configuration
	maxHistory int           // max number of observations per series
	maxAge     time.Duration // optional max age, measured from FetchedAt
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*SeriesHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Save records observations. An observation for a period already present
// in its series replaces the earlier one.
func (s *MemoryStore) Save(_ context.Context, obs []benchmark.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]*SeriesHistory)
	for _, o := range obs {
		key := o.Key().Key()
		history, ok := s.data[key]
		if !ok {
			history = &SeriesHistory{}
			s.data[key] = history
		}
		replaced := false
		for i := range history.Observations {
			if history.Observations[i].Period == o.Period {
				history.Observations[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			history.Observations = append(history.Observations, o)
		}
		touched[key] = history
	}

	for _, history := range touched {
		s.enforceRetention(history)
	}
	return nil
}

func (s *MemoryStore) enforceRetention(history *SeriesHistory) {
	sort.SliceStable(history.Observations, func(i, j int) bool {
		return history.Observations[i].PeriodStart.Before(history.Observations[j].PeriodStart)
	})

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Observations) > s.maxHistory {
		over := len(history.Observations) - s.maxHistory
		history.Observations = history.Observations[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		kept := history.Observations[:0]
		for _, o := range history.Observations {
			if !o.FetchedAt.Before(cutoff) {
				kept = append(kept, o)
			}
		}
		history.Observations = kept
	}
}

// Latest returns the observation with the most recent period.
func (s *MemoryStore) Latest(_ context.Context, key benchmark.SeriesKey) (benchmark.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key.Key()]
	if !ok || len(history.Observations) == 0 {
		return benchmark.Observation{}, ErrNotFound
	}
	return history.Observations[len(history.Observations)-1], nil
}

// Range returns observations whose period starts between from and to
// (inclusive). A zero from or to leaves that side open.
func (s *MemoryStore) Range(_ context.Context, key benchmark.SeriesKey, from, to time.Time) ([]benchmark.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key.Key()]
	if !ok || len(history.Observations) == 0 {
		return nil, ErrNotFound
	}

	var result []benchmark.Observation
	for _, o := range history.Observations {
		if inRange(o.PeriodStart, from, to) {
			result = append(result, o)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
