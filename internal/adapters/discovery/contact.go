package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/jaytaylor/html2text"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/core"
)

// NoEmailAvailable is displayed when no contact address could be found
const NoEmailAvailable = "No email available"

const maxPageBytes = 2 << 20

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

const contactPrompt = `Based on the below text, what is the email for data privacy/GDPR contact?
Return only email address.
%s`

// ContactExtractor reads a privacy page and asks a model for the contact address
type ContactExtractor struct {
	httpClient *http.Client
	generator  core.TextGenerator
	logger     *zap.Logger
}

// NewContactExtractor creates a new ContactExtractor
func NewContactExtractor(httpClient *http.Client, generator core.TextGenerator, logger *zap.Logger) *ContactExtractor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactExtractor{httpClient: httpClient, generator: generator, logger: logger}
}

// Extract returns the privacy contact address published on pageURL, or
// core.ErrNoContact when the model answer holds no address.
func (e *ContactExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	text, err := e.pageText(ctx, pageURL)
	if err != nil {
		return "", err
	}

	answer, err := e.generator.Generate(ctx, fmt.Sprintf(contactPrompt, text))
	if err != nil {
		return "", fmt.Errorf("failed to extract contact address: %w", err)
	}

	email := FindEmail(answer)
	if email == "" {
		e.logger.Info("No contact address on privacy page", zap.String("url", pageURL))
		return "", fmt.Errorf("%w: %s", core.ErrNoContact, pageURL)
	}
	return email, nil
}

func (e *ContactExtractor) pageText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build page request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to load privacy page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("privacy page returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read privacy page: %w", err)
	}

	text, err := html2text.FromString(string(raw), html2text.Options{OmitLinks: false, TextOnly: true})
	if err != nil {
		return "", fmt.Errorf("failed to convert privacy page: %w", err)
	}
	return text, nil
}

// FindEmail returns the first e-mail shaped token in s
func FindEmail(s string) string {
	return emailPattern.FindString(s)
}
