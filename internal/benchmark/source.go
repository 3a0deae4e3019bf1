package benchmark

import (
	"context"
	"time"
)

// Source abstracts one publication (e.g. A&E monthly, RTT full extract).
// Periods are the labels of its static catalog, newest first.
type Source interface {
	Dataset() Dataset
	Format() Format
	Periods() []string
	Fetch(ctx context.Context, period string) (*Table, error)
}

// Cache is a write-once byte store keyed by filename. Callers check Has
// before Read; a second Write for the same key is a no-op.
type Cache interface {
	Has(key string) bool
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
}

// ObservationStore is the contract the in-memory store (and the Postgres
// store) must satisfy.
type ObservationStore interface {
	Save(ctx context.Context, obs []Observation) error
	Latest(ctx context.Context, key SeriesKey) (Observation, error)
	Range(ctx context.Context, key SeriesKey, from, to time.Time) ([]Observation, error)
}
