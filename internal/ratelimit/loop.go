package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/core"
	"github.com/mikey/inbox-data-requests/internal/metrics"
)

// ErrSkipped wraps the final error of a message that will not be retried
var ErrSkipped = errors.New("classification skipped")

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Loop wraps a Classifier with a retry policy
type Loop struct {
	classifier core.Classifier
	policy     Policy
	logger     *zap.Logger
	sleep      SleepFunc
}

// NewLoop creates a new Loop
func NewLoop(classifier core.Classifier, policy Policy, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Backoff == nil {
		policy.Backoff = FixedBackoff(DefaultCooldown)
	}
	if policy.Retryable == nil {
		policy.Retryable = IsRateLimit
	}
	return &Loop{
		classifier: classifier,
		policy:     policy,
		logger:     logger,
		sleep:      Sleep,
	}
}

// WithSleep replaces the cooldown wait
func (l *Loop) WithSleep(fn SleepFunc) *Loop {
	l.sleep = fn
	return l
}

// Classify calls the wrapped classifier until it succeeds, fails with a
// non-retryable error, exhausts MaxAttempts, or ctx is done.
func (l *Loop) Classify(ctx context.Context, body string) (*core.ClassificationResult, error) {
	for attempt := 1; ; attempt++ {
		started := time.Now()
		result, err := l.classifier.Classify(ctx, body)
		if err == nil {
			metrics.ClassificationDuration.WithLabelValues("ok").Observe(time.Since(started).Seconds())
			return result, nil
		}
		metrics.ClassificationDuration.WithLabelValues("error").Observe(time.Since(started).Seconds())

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if !l.policy.Retryable(err) {
			return nil, fmt.Errorf("%w: %w", ErrSkipped, err)
		}
		if l.policy.MaxAttempts > 0 && attempt >= l.policy.MaxAttempts {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrSkipped, attempt, err)
		}

		cooldown := l.policy.Backoff(attempt)
		l.logger.Warn("Rate limit hit, waiting before retry",
			zap.Int("attempt", attempt),
			zap.Duration("cooldown", cooldown),
			zap.Error(err))
		metrics.RateLimitWaits.Inc()

		if err := l.sleep(ctx, cooldown); err != nil {
			return nil, err
		}
	}
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
