package factory

import (
	"fmt"

	"github.com/mikey/inbox-data-requests/internal/config"
	"github.com/mikey/inbox-data-requests/internal/ratelimit"
)

// CreateRetryPolicy builds the rate-limit retry policy from configuration
func CreateRetryPolicy(cfg *config.Config) (ratelimit.Policy, error) {
	retryCfg := cfg.GetRetry()
	policy := ratelimit.DefaultPolicy(retryCfg.Cooldown)
	policy.MaxAttempts = retryCfg.MaxAttempts

	switch retryCfg.Backoff {
	case "", "fixed":
	case "exponential":
		policy.Backoff = ratelimit.ExponentialBackoff(retryCfg.Cooldown, retryCfg.MaxBackoff)
	default:
		return ratelimit.Policy{}, fmt.Errorf("unsupported retry backoff: %s", retryCfg.Backoff)
	}
	return policy, nil
}
