// Package gitlab contains the outbound clients for the GitLab provider:
// OAuth token exchange, GraphQL queries, and the REST events API.
package gitlab

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// callTimeout bounds every outbound provider call. The provider is treated
// as an opaque remote service; a slow answer is an error, not a wait.
const callTimeout = 10 * time.Second

// NewHTTPClient returns the shared outbound HTTP client: fixed timeout plus
// a circuit breaker guarding the provider.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   callTimeout,
		Transport: newBreakerTransport(http.DefaultTransport),
	}
}

// breakerTransport wraps a RoundTripper with a circuit breaker so that a
// misbehaving provider fails fast instead of tying up request handlers.
type breakerTransport struct {
	cb   circuitbreaker.CircuitBreaker[any]
	next http.RoundTripper
}

// Breaker settings: trip at 60% failures over at least 5 requests in a 10s
// rolling window, stay open 30s, close again after 1 half-open success.
func newBreakerTransport(next http.RoundTripper) *breakerTransport {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "gitlab",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
		}).
		Build()

	return &breakerTransport{cb: cb, next: next}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.cb.TryAcquirePermit() {
		return nil, fmt.Errorf("gitlab circuit breaker open: %w", circuitbreaker.ErrOpen)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.cb.RecordError(err)
		return nil, err
	}

	// 5xx answers count against the breaker; client errors do not.
	if resp.StatusCode >= http.StatusInternalServerError {
		t.cb.RecordFailure()
	} else {
		t.cb.RecordSuccess()
	}
	return resp, nil
}
