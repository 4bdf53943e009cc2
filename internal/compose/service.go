package compose

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/core"
	"github.com/mikey/inbox-data-requests/internal/metrics"
)

// PrivacyLocator finds a reachable privacy page for a website
type PrivacyLocator interface {
	PrivacyURL(ctx context.Context, website string) (string, error)
}

// ContactFinder reads the privacy contact address off a page
type ContactFinder interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// RequestService prepares and sends data requests to companies
type RequestService struct {
	composer *Composer
	locator  PrivacyLocator
	contacts ContactFinder
	sender   core.MailSender
	user     core.UserProfile
	logger   *zap.Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	composer *Composer,
	locator PrivacyLocator,
	contacts ContactFinder,
	sender core.MailSender,
	user core.UserProfile,
	logger *zap.Logger,
) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		composer: composer,
		locator:  locator,
		contacts: contacts,
		sender:   sender,
		user:     user,
		logger:   logger,
	}
}

// Prepare composes the request for row. A non-empty overrideTo is used as
// the recipient and skips contact discovery.
func (s *RequestService) Prepare(ctx context.Context, row core.CompanyRow, overrideTo string) (*core.Draft, error) {
	draft, err := s.composer.Compose(row, s.user)
	if err != nil {
		return nil, err
	}

	if overrideTo != "" {
		draft.To = overrideTo
		return draft, nil
	}

	to, err := s.findContact(ctx, row)
	if err != nil {
		return nil, err
	}
	draft.To = to
	return draft, nil
}

func (s *RequestService) findContact(ctx context.Context, row core.CompanyRow) (string, error) {
	logger := s.logger.With(zap.String("company", row.CompanyName), zap.String("website", row.Website))

	if row.Website == "" {
		return "", fmt.Errorf("%w: %s has no website", core.ErrNoContact, row.CompanyName)
	}

	pageURL, err := s.locator.PrivacyURL(ctx, row.Website)
	if err != nil {
		logger.Warn("No privacy page found", zap.Error(err))
		return "", fmt.Errorf("%w: %w", core.ErrNoContact, err)
	}

	email, err := s.contacts.Extract(ctx, pageURL)
	if err != nil {
		logger.Warn("No contact address found", zap.String("url", pageURL), zap.Error(err))
		if errors.Is(err, core.ErrNoContact) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", core.ErrNoContact, err)
	}

	logger.Info("Found privacy contact", zap.String("email", email))
	return email, nil
}

// Send turns draft into an envelope and hands it to the mail sender
func (s *RequestService) Send(ctx context.Context, draft *core.Draft) (string, error) {
	env, err := BuildEnvelope(s.user, draft.To, draft.Subject, draft.Body)
	if err != nil {
		metrics.RequestsSent.WithLabelValues(string(draft.RequestType), "invalid").Inc()
		return "", err
	}

	id, err := s.sender.Send(ctx, env)
	if err != nil {
		metrics.RequestsSent.WithLabelValues(string(draft.RequestType), "failed").Inc()
		return "", fmt.Errorf("failed to send request to %s: %w", draft.Company, err)
	}

	metrics.RequestsSent.WithLabelValues(string(draft.RequestType), "sent").Inc()
	s.logger.Info("Request sent",
		zap.String("company", draft.Company),
		zap.String("request_type", string(draft.RequestType)),
		zap.String("message_id", id))
	return id, nil
}

// SendAll prepares and sends a request for every row. A failing row does not
// stop the others; all failures are returned joined.
func (s *RequestService) SendAll(ctx context.Context, rows []core.CompanyRow) (map[string]string, error) {
	sent := make(map[string]string, len(rows))
	var errs []error

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		draft, err := s.Prepare(ctx, row, "")
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", row.CompanyName, err))
			continue
		}
		id, err := s.Send(ctx, draft)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", row.CompanyName, err))
			continue
		}
		sent[row.CompanyName] = id
	}

	return sent, errors.Join(errs...)
}
