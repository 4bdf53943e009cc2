// Package gmail adapts the Gmail REST API to the scan and send ports.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/mikey/inbox-data-requests/internal/core"
)

const (
	userID = "me"
	// maxPageSize is the largest page the messages.list endpoint returns
	maxPageSize = 500
)

// Client wraps an authenticated Gmail service
type Client struct {
	srv    *gmail.Service
	logger *zap.Logger
}

// NewClient creates a new Client
func NewClient(srv *gmail.Service, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{srv: srv, logger: logger}
}

// ListMessages returns up to maxResults message ids carrying labelID and
// matching query, following page tokens as needed.
func (c *Client) ListMessages(ctx context.Context, labelID, query string, maxResults int64) ([]string, error) {
	var ids []string
	pageToken := ""

	for int64(len(ids)) < maxResults {
		call := c.srv.Users.Messages.List(userID).
			LabelIds(labelID).
			Q(query).
			MaxResults(min(maxResults-int64(len(ids)), maxPageSize)).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, wrapError(err, "failed to list messages")
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}

		if resp.NextPageToken == "" || len(resp.Messages) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}

	c.logger.Debug("Listed messages",
		zap.String("label", labelID),
		zap.Int("count", len(ids)))
	return ids, nil
}

// GetMessage loads a message in full format
func (c *Client) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	msg, err := c.srv.Users.Messages.Get(userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err, "failed to get message")
	}
	return msg, nil
}

// Send delivers an already encoded envelope and returns the Gmail message id
func (c *Client) Send(ctx context.Context, env *core.Envelope) (string, error) {
	sent, err := c.srv.Users.Messages.Send(userID, &gmail.Message{Raw: env.Raw}).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err, "failed to send message")
	}
	c.logger.Info("Message sent",
		zap.String("to", env.To),
		zap.String("gmail_id", sent.Id))
	return sent.Id, nil
}

// wrapError maps Gmail API failures onto core errors
func wrapError(err error, msg string) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: %w", msg, core.ErrRateLimited, err)
	case apiErr.Code == http.StatusForbidden && isRateLimitReason(apiErr):
		return fmt.Errorf("%s: %w: %w", msg, core.ErrRateLimited, err)
	case apiErr.Code == http.StatusNotFound:
		return fmt.Errorf("%s: %w: %w", msg, core.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isRateLimitReason(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return strings.Contains(apiErr.Message, "Rate Limit")
}
