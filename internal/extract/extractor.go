// Package extract turns provider message records into MessageContent.
package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"

	"github.com/mikey/inbox-data-requests/internal/core")

// headerDateLayout is the RFC 2822 shape most providers emit
const headerDateLayout = "Mon, 2 Jan 2006 15:04:05 -0700"

const plainText = "text/plain"

// MessageGetter is the mail provider's get-message call
type MessageGetter interface {
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
}

// Extractor loads a message and extracts its plain-text content
type Extractor struct {
	getter MessageGetter
	logger *zap.Logger
}

// NewExtractor creates a new Extractor
func NewExtractor(getter MessageGetter, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		getter: getter,
		logger: logger,
	}
}

// Extract fetches ref from the provider and parses it. The body is returned
// exactly as decoded; model adapters normalize it before prompting.
func (e *Extractor) Extract(ctx context.Context, ref core.RawMessageRef) (*core.MessageContent, error) {
	msg, err := e.getter.GetMessage(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", ref.ID, err)
	}

	content, err := Parse(msg)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", ref.ID, err)
	}
	e.logger.Debug("Extracted message content",
		zap.String("message_id", ref.ID),
		zap.Int("body_size", len(content.Body)))

	return content, nil
}

// Parse extracts headers and the plain-text body from a full-format message.
// It fails with core.ErrNoContent when no decodable text body exists.
func Parse(msg *gmail.Message) (*core.MessageContent, error) {
	if msg == nil || msg.Payload == nil {
		return nil, core.ErrNoContent
	}

	content := &core.MessageContent{
		Subject: header(msg.Payload, "Subject"),
		Sender:  header(msg.Payload, "From"),
		Date:    FormatDate(header(msg.Payload, "Date")),
	}

	data := bodyData(msg.Payload)
	if data == "" {
		return nil, core.ErrNoContent
	}

	body, err := decodeBody(data)
	if err != nil {
		return nil, err
	}
	content.Body = body

	return content, nil
}

// FormatDate renders an RFC 2822 header date as YYYY-MM-DD, or returns raw
// unchanged when it does not parse.
func FormatDate(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := time.Parse(headerDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return parsed.Format("2006-01-02")
}

// header returns the first header value named name
func header(part *gmail.MessagePart, name string) string {
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// bodyData selects the encoded body. A multipart payload yields its first
// text/plain part in depth-first order; a single-part payload yields its own body.
func bodyData(payload *gmail.MessagePart) string {
	if len(payload.Parts) > 0 {
		return firstPlainText(payload.Parts)
	}
	if payload.Body != nil {
		return payload.Body.Data
	}
	return ""
}

func firstPlainText(parts []*gmail.MessagePart) string {
	for _, part := range parts {
		if part == nil {
			continue
		}
		if isPlainText(part.MimeType) && part.Body != nil && part.Body.Data != "" {
			return part.Body.Data
		}
		if len(part.Parts) > 0 {
			if data := firstPlainText(part.Parts); data != "" {
				return data
			}
		}
	}
	return ""
}

func isPlainText(mimeType string) bool {
	mediaType, _, _ := strings.Cut(mimeType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), plainText)
}

// decodeBody accepts URL-safe base64 with or without padding
func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", fmt.Errorf("%w: invalid body encoding: %v", core.ErrNoContent, err)
		}
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("%w: body is not valid UTF-8", core.ErrNoContent)
	}
	return string(decoded), nil
}
