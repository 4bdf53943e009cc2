package core

import (
	"context"
)

// Classifier turns a message body into a structured classification
type Classifier interface {
	// Classify sends body to a model and returns the schema-validated answer.
	// Transport and model errors are returned unchanged in kind.
	Classify(ctx context.Context, body string) (*ClassificationResult, error)
}

// TextGenerator answers a free-form prompt
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMClient is a model backend able to classify and to answer prompts
type LLMClient interface {
	Classifier
	TextGenerator
}

// MessageFetcher lists candidate messages for a scan
type MessageFetcher interface {
	Fetch(ctx context.Context, opts FetchOptions) ([]RawMessageRef, error)
}

// ContentExtractor loads and normalizes a single message
type ContentExtractor interface {
	Extract(ctx context.Context, ref RawMessageRef) (*MessageContent, error)
}

// ClassificationCache stores classifications keyed by message id
type ClassificationCache interface {
	// Get retrieves a cached entry; ErrNotFound when missing or expired
	Get(ctx context.Context, messageID string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, messageID string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// ProgressReporter receives coarse scan checkpoints
type ProgressReporter interface {
	Progress(percent int, text string)
	Done()
}

// MailSender delivers a composed envelope and returns the provider message id
type MailSender interface {
	Send(ctx context.Context, env *Envelope) (string, error)
}
