package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/adapters/cache"
	"github.com/mikey/inbox-data-requests/internal/adapters/smtp"
	"github.com/mikey/inbox-data-requests/internal/config"
	"github.com/mikey/inbox-data-requests/internal/core"
)

func testConfig(values map[string]any) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range values {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestCreateRetryPolicy(t *testing.T) {
	policy, err := CreateRetryPolicy(testConfig(nil))
	require.NoError(t, err)
	assert.Zero(t, policy.MaxAttempts)
	assert.Equal(t, 60*time.Second, policy.Backoff(1))
	assert.Equal(t, 60*time.Second, policy.Backoff(5))

	policy, err = CreateRetryPolicy(testConfig(map[string]any{
		"retry.backoff":      "exponential",
		"retry.cooldown":     "10s",
		"retry.max_backoff":  "30s",
		"retry.max_attempts": 4,
	}))
	require.NoError(t, err)
	assert.Equal(t, 4, policy.MaxAttempts)
	assert.Equal(t, 10*time.Second, policy.Backoff(1))
	assert.Equal(t, 20*time.Second, policy.Backoff(2))
	assert.Equal(t, 30*time.Second, policy.Backoff(3))

	policy, err = CreateRetryPolicy(testConfig(map[string]any{
		"retry.backoff":     "exponential",
		"retry.cooldown":    "0s",
		"retry.max_backoff": "0s",
	}))
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, policy.Backoff(1))
	assert.Positive(t, policy.Backoff(40))

	_, err = CreateRetryPolicy(testConfig(map[string]any{"retry.backoff": "random"}))
	assert.Error(t, err)
}

func TestCreateCache(t *testing.T) {
	f := NewCacheFactory(testConfig(nil), zap.NewNop())
	c, err := f.CreateCache()
	require.NoError(t, err)
	defer c.Stop()
	assert.IsType(t, &cache.MemoryCache{}, c)

	f = NewCacheFactory(testConfig(map[string]any{
		"cache.type":        "sqlite",
		"cache.sqlite_path": filepath.Join(t.TempDir(), "db", "cache.db"),
	}), zap.NewNop())
	c, err = f.CreateCache()
	require.NoError(t, err)
	defer c.Stop()
	assert.IsType(t, &cache.SQLiteCache{}, c)

	f = NewCacheFactory(testConfig(map[string]any{"cache.type": "etcd"}), zap.NewNop())
	_, err = f.CreateCache()
	assert.Error(t, err)
}

func TestCacheSettings(t *testing.T) {
	f := NewCacheFactory(testConfig(map[string]any{"cache.enabled": false}), zap.NewNop())
	assert.False(t, f.IsCacheEnabled())
	ttl, err := f.GetCacheTTL()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)
}

type nopSender struct{}

func (nopSender) Send(ctx context.Context, env *core.Envelope) (string, error) { return "", nil }

func TestCreateSender(t *testing.T) {
	f := NewSenderFactory(testConfig(nil), zap.NewNop())
	s, err := f.CreateSender(func() (core.MailSender, error) { return nopSender{}, nil })
	require.NoError(t, err)
	assert.Equal(t, nopSender{}, s)

	_, err = f.CreateSender(nil)
	assert.Error(t, err)

	f = NewSenderFactory(testConfig(map[string]any{"sender.type": "smtp"}), zap.NewNop())
	s, err = f.CreateSender(func() (core.MailSender, error) {
		t.Fatal("gmail must not be connected for smtp")
		return nil, nil
	})
	require.NoError(t, err)
	assert.IsType(t, &smtp.Sender{}, s)
}

func TestCreateLLMClient_Validation(t *testing.T) {
	f := NewLLMFactory(testConfig(map[string]any{"llm.provider": "llama"}), zap.NewNop(), nil)
	_, err := f.CreateLLMClient()
	assert.ErrorContains(t, err, "unsupported LLM provider")

	f = NewLLMFactory(testConfig(map[string]any{"llm.provider": "gemini"}), zap.NewNop(), nil)
	_, err = f.CreateLLMClient()
	assert.ErrorContains(t, err, "gemini.api_key")

	f = NewLLMFactory(testConfig(map[string]any{"llm.provider": "openai"}), zap.NewNop(), nil)
	_, err = f.CreateLLMClient()
	assert.ErrorContains(t, err, "openai.api_key")
}
