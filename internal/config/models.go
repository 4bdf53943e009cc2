package config

import "time"

// GmailConfig locates the OAuth client secret and cached token
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
}

// ScanConfig bounds a scan run
type ScanConfig struct {
	Days              int
	LimitPerCategory  int
	Categories        []string
	IgnoredCategories []string
	Concurrency       int
}

// RetryConfig tunes the rate-limit retry loop
type RetryConfig struct {
	Cooldown    time.Duration
	MaxAttempts int
	Backoff     string
	MaxBackoff  time.Duration
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// CacheConfig selects and tunes the classification cache
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// LogoConfig points at the logo image service
type LogoConfig struct {
	BaseURL      string
	Token        string
	ProbeTimeout time.Duration
}

// DiscoveryConfig points at the privacy-page search API
type DiscoveryConfig struct {
	Endpoint string
	APIKey   string
	Limit    int
	Timeout  time.Duration
}

// SenderConfig selects the outbound transport
type SenderConfig struct {
	Type string
}

// SMTPConfig is the relay used when sender.type is smtp
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// UserConfig identifies the account owner signing requests
type UserConfig struct {
	Name  string
	Email string
}

// GetGmail returns the Gmail configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		CredentialsFile: c.GetString("gmail.credentials_file"),
		TokenFile:       c.GetString("gmail.token_file"),
	}
}

// GetScan returns the scan configuration
func (c *Config) GetScan() ScanConfig {
	return ScanConfig{
		Days:              c.GetInt("scan.days"),
		LimitPerCategory:  c.GetInt("scan.limit_per_category"),
		Categories:        c.GetStringSlice("scan.categories"),
		IgnoredCategories: c.GetStringSlice("scan.ignored_categories"),
		Concurrency:       c.GetInt("scan.concurrency"),
	}
}

// GetRetry returns the retry configuration
func (c *Config) GetRetry() RetryConfig {
	return RetryConfig{
		Cooldown:    c.v.GetDuration("retry.cooldown"),
		MaxAttempts: c.GetInt("retry.max_attempts"),
		Backoff:     c.GetString("retry.backoff"),
		MaxBackoff:  c.v.GetDuration("retry.max_backoff"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              c.v.GetDuration("cache.ttl"),
		CleanupFrequency: c.v.GetDuration("cache.cleanup_frequency"),
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
	}
}

// GetLogo returns the logo service configuration
func (c *Config) GetLogo() LogoConfig {
	return LogoConfig{
		BaseURL:      c.GetString("logo.base_url"),
		Token:        c.GetString("logo.token"),
		ProbeTimeout: c.v.GetDuration("logo.probe_timeout"),
	}
}

// GetDiscovery returns the privacy-page search configuration
func (c *Config) GetDiscovery() DiscoveryConfig {
	return DiscoveryConfig{
		Endpoint: c.GetString("discovery.endpoint"),
		APIKey:   c.GetString("discovery.api_key"),
		Limit:    c.GetInt("discovery.limit"),
		Timeout:  c.v.GetDuration("discovery.timeout"),
	}
}

// GetSender returns the outbound transport selection
func (c *Config) GetSender() SenderConfig {
	return SenderConfig{
		Type: c.GetString("sender.type"),
	}
}

// GetSMTP returns the SMTP relay configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Host:     c.GetString("smtp.host"),
		Port:     c.GetInt("smtp.port"),
		Username: c.GetString("smtp.username"),
		Password: c.GetString("smtp.password"),
	}
}

// GetTemplatesPath returns the request templates file, empty for built-ins
func (c *Config) GetTemplatesPath() string {
	return c.GetString("templates.path")
}

// GetUser returns the signing user
func (c *Config) GetUser() UserConfig {
	return UserConfig{
		Name:  c.GetString("user.name"),
		Email: c.GetString("user.email"),
	}
}

// GetMetricsAddress returns the metrics listen address, empty when disabled
func (c *Config) GetMetricsAddress() string {
	return c.GetString("metrics.listen_address")
}
