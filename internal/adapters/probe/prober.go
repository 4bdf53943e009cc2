// Package probe checks URL reachability behind a circuit breaker.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/metrics"
)

// Prober issues GET requests and reports whether they answered 200
type Prober struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewProber creates a new Prober. A nil client gets a client with timeout.
func NewProber(client *http.Client, timeout time.Duration, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	settings := gobreaker.Settings{
		Name:        "url-probe",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Prober{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

// Reachable reports whether rawURL answers a GET with 200. Only transport
// failures and 5xx answers count against the breaker.
func (p *Prober) Reachable(ctx context.Context, rawURL string) bool {
	status, err := p.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return 0, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		if resp.StatusCode >= http.StatusInternalServerError {
			return resp.StatusCode, fmt.Errorf("server error: %d", resp.StatusCode)
		}
		return resp.StatusCode, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.URLProbes.WithLabelValues("open_circuit").Inc()
		p.logger.Debug("Probe short-circuited", zap.String("url", rawURL))
		return false
	case err != nil:
		metrics.URLProbes.WithLabelValues("unreachable").Inc()
		p.logger.Debug("Probe failed", zap.String("url", rawURL), zap.Error(err))
		return false
	}

	if code, _ := status.(int); code == http.StatusOK {
		metrics.URLProbes.WithLabelValues("ok").Inc()
		return true
	}
	metrics.URLProbes.WithLabelValues("unreachable").Inc()
	return false
}
