package di

import (
	"context"
	"net/http"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/adapters/discovery"
	gmailadapter "github.com/mikey/inbox-data-requests/internal/adapters/gmail"
	"github.com/mikey/inbox-data-requests/internal/adapters/probe"
	"github.com/mikey/inbox-data-requests/internal/adapters/progress"
	"github.com/mikey/inbox-data-requests/internal/compose"
	"github.com/mikey/inbox-data-requests/internal/config"
	"github.com/mikey/inbox-data-requests/internal/core"
	"github.com/mikey/inbox-data-requests/internal/extract"
	"github.com/mikey/inbox-data-requests/internal/factory"
	"github.com/mikey/inbox-data-requests/internal/fetch"
	"github.com/mikey/inbox-data-requests/internal/logging"
	"github.com/mikey/inbox-data-requests/internal/ratelimit"
	"github.com/mikey/inbox-data-requests/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
// around an already loaded configuration. Providers run lazily, so the
// Gmail consent flow only happens for commands that need the mailbox.
func BuildContainer(cfg *config.Config) (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		// Configuration and logger
		func() *config.Config { return cfg },
		logging.InitLogger,

		// Factories
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		factory.NewSenderFactory,
		factory.NewTextProcessorFactory,

		func(f *factory.TextProcessorFactory) *utils.TextProcessor {
			return f.CreateTextProcessor()
		},
		func(f *factory.LLMFactory) (core.LLMClient, error) {
			return f.CreateLLMClient()
		},
		factory.CreateRetryPolicy,

		// Classifier wrapped in the rate-limit retry loop
		func(llm core.LLMClient, policy ratelimit.Policy, logger *zap.Logger) core.Classifier {
			return ratelimit.NewLoop(llm, policy, logger)
		},

		// Cache is nil when disabled
		func(f *factory.CacheFactory) (core.ClassificationCache, error) {
			if !f.IsCacheEnabled() {
				return nil, nil
			}
			return f.CreateCache()
		},

		provideScanSettings,
		provideFetchOptions,

		// Mailbox
		provideGmailClient,
		func(c *gmailadapter.Client, logger *zap.Logger) core.MessageFetcher {
			return fetch.NewFetcher(c, logger)
		},
		func(c *gmailadapter.Client, logger *zap.Logger) core.ContentExtractor {
			return extract.NewExtractor(c, logger)
		},
		func() core.ProgressReporter {
			return progress.NewBar(nil)
		},
		core.NewScanService,

		// Reachability and discovery
		func(cfg *config.Config, logger *zap.Logger) *probe.Prober {
			return probe.NewProber(nil, cfg.GetLogo().ProbeTimeout, logger)
		},
		provideDiscoveryClient,
		func(cfg *config.Config, llm core.LLMClient, logger *zap.Logger) *discovery.ContactExtractor {
			return discovery.NewContactExtractor(&http.Client{Timeout: cfg.GetDiscovery().Timeout}, llm, logger)
		},

		// Outbound requests
		provideSender,
		func(cfg *config.Config) (compose.Templates, error) {
			return compose.LoadTemplates(cfg.GetTemplatesPath())
		},
		compose.NewComposer,
		func(cfg *config.Config) core.UserProfile {
			user := cfg.GetUser()
			return core.UserProfile{Name: user.Name, Email: user.Email}
		},
		provideRequestService,
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, err
		}
	}

	return container, nil
}

func provideScanSettings(cfg *config.Config, f *factory.CacheFactory) (core.ScanSettings, error) {
	ttl, err := f.GetCacheTTL()
	if err != nil {
		return core.ScanSettings{}, err
	}
	return core.ScanSettings{
		Concurrency:  cfg.GetScan().Concurrency,
		CacheEnabled: f.IsCacheEnabled(),
		CacheTTL:     ttl,
	}, nil
}

func provideFetchOptions(cfg *config.Config) core.FetchOptions {
	scan := cfg.GetScan()
	return core.FetchOptions{
		Days:             scan.Days,
		Categories:       scan.Categories,
		Ignored:          scan.IgnoredCategories,
		LimitPerCategory: scan.LimitPerCategory,
	}
}

func provideGmailClient(cfg *config.Config, logger *zap.Logger) (*gmailadapter.Client, error) {
	gmailCfg := cfg.GetGmail()
	srv, err := gmailadapter.NewService(context.Background(), gmailadapter.AuthConfig{
		CredentialsFile: gmailCfg.CredentialsFile,
		TokenFile:       gmailCfg.TokenFile,
	}, os.Stdin, os.Stderr, logger)
	if err != nil {
		return nil, err
	}
	return gmailadapter.NewClient(srv, logger), nil
}

func provideDiscoveryClient(cfg *config.Config, prober *probe.Prober, logger *zap.Logger) *discovery.Client {
	discoveryCfg := cfg.GetDiscovery()
	return discovery.NewClient(
		discoveryCfg.Endpoint,
		discoveryCfg.APIKey,
		discoveryCfg.Limit,
		&http.Client{Timeout: discoveryCfg.Timeout},
		prober,
		logger,
	)
}

func provideSender(cfg *config.Config, f *factory.SenderFactory, logger *zap.Logger) (core.MailSender, error) {
	return f.CreateSender(func() (core.MailSender, error) {
		return provideGmailClient(cfg, logger)
	})
}

func provideRequestService(
	composer *compose.Composer,
	locator *discovery.Client,
	contacts *discovery.ContactExtractor,
	sender core.MailSender,
	user core.UserProfile,
	logger *zap.Logger,
) *compose.RequestService {
	return compose.NewRequestService(composer, locator, contacts, sender, user, logger)
}
