// Package smtp delivers composed envelopes through an SMTP relay.
package smtp

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/core"
)

// Config holds the relay address and optional PLAIN credentials
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Sender implements core.MailSender over SMTP
type Sender struct {
	cfg    Config
	logger *zap.Logger
}

// NewSender creates a new Sender
func NewSender(cfg Config, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{cfg: cfg, logger: logger}
}

// Send relays the envelope and returns its Message-Id
func (s *Sender) Send(ctx context.Context, env *core.Envelope) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := decodeRaw(env.Raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode envelope: %w", err)
	}

	var auth sasl.Client
	if s.cfg.Username != "" {
		auth = sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := gosmtp.SendMail(addr, auth, env.From, []string{env.To}, bytes.NewReader(raw)); err != nil {
		return "", fmt.Errorf("failed to send message via %s: %w", addr, err)
	}

	s.logger.Info("Message sent",
		zap.String("to", env.To),
		zap.String("message_id", env.MessageID))
	return env.MessageID, nil
}

func decodeRaw(raw string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(raw); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(raw)
}
