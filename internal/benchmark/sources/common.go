package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

// DefaultUserAgent identifies this client to the publisher.
const DefaultUserAgent = "HospitalFlowDashboard/1.0 (education use)"

// BackoffConfig controls exponential backoff between download attempts.
// Only 5xx responses and network errors are retried.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client    *http.Client
	UserAgent string
	Backoff   BackoffConfig
}

// DefaultHTTPClientConfig returns a config with no retries around client.
// Set Backoff.MaxRetries to retry transient failures.
func DefaultHTTPClientConfig(client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client:    client,
		UserAgent: DefaultUserAgent,
		Backoff: BackoffConfig{
			MaxRetries:      0,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// download performs a GET for url through the circuit breaker and returns
// the full body. Non-2xx statuses and network errors come back as
// *benchmark.TransportError.
func download(ctx context.Context, cfg HTTPClientConfig, cb *gobreaker.CircuitBreaker, url string) ([]byte, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return nil, &benchmark.TransportError{URL: url, Err: err}
		}

		result, err := cb.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			ua := cfg.UserAgent
			if ua == "" {
				ua = DefaultUserAgent
			}
			req.Header.Set("User-Agent", ua)

			resp, err := cfg.Client.Do(req)
			if err != nil {
				return nil, &benchmark.TransportError{URL: url, Err: err}
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil, &benchmark.TransportError{URL: url, StatusCode: resp.StatusCode}
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, &benchmark.TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
			}
			return body, nil
		})

		if err == nil {
			body, ok := result.([]byte)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return body, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &benchmark.TransportError{URL: url, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}

		if attempt >= cfg.Backoff.MaxRetries || !retryable(err) {
			return nil, err
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &benchmark.TransportError{URL: url, Err: ctx.Err()}
		case <-timer.C:
		}

		attempt++
	}
}

// retryable reports whether a failed attempt may succeed on retry: network
// errors and server-side statuses. A cancelled context and 4xx responses
// are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *benchmark.TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.StatusCode == 0 || te.StatusCode >= 500
}
