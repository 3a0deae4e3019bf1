package benchmark

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPeriod is returned when a period is absent from a
	// dataset's static catalog.
	ErrUnsupportedPeriod = errors.New("period not supported")
	// ErrUnknownDataset is returned for dataset identifiers with no source.
	ErrUnknownDataset = errors.New("unknown dataset")
	// ErrSchemaMismatch is returned when a required column cannot be located.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrTransport is returned for download failures, including non-success
	// HTTP statuses.
	ErrTransport = errors.New("transport failure")
)

// UnsupportedPeriodError names the dataset and the period that is missing
// from its catalog.
type UnsupportedPeriodError struct {
	Dataset Dataset
	Period  string
}

func (e *UnsupportedPeriodError) Error() string {
	return fmt.Sprintf("%s: period %q not supported; extend the %s catalog to add it", e.Dataset, e.Period, e.Dataset)
}

func (e *UnsupportedPeriodError) Unwrap() error { return ErrUnsupportedPeriod }

// SchemaError reports a column that no matcher could resolve.
type SchemaError struct {
	Dataset Dataset
	Field   string
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s column not found in %s table (%d columns inspected)", e.Field, e.Dataset, len(e.Columns))
}

func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }

// TransportError wraps a failed download. StatusCode is zero when the
// request never produced a response.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}
