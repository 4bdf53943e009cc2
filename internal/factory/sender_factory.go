package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/adapters/smtp"
	"github.com/mikey/inbox-data-requests/internal/config"
	"github.com/mikey/inbox-data-requests/internal/core"
)

// SenderFactory creates the outbound mail transport
type SenderFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSenderFactory creates a new SenderFactory
func NewSenderFactory(cfg *config.Config, logger *zap.Logger) *SenderFactory {
	return &SenderFactory{cfg: cfg, logger: logger}
}

// CreateSender returns the configured transport. connectGmail is only called
// when sender.type is gmail.
func (f *SenderFactory) CreateSender(connectGmail func() (core.MailSender, error)) (core.MailSender, error) {
	senderCfg := f.cfg.GetSender()

	switch senderCfg.Type {
	case "gmail":
		if connectGmail == nil {
			return nil, fmt.Errorf("gmail sender is not available")
		}
		return connectGmail()
	case "smtp":
		smtpCfg := f.cfg.GetSMTP()
		return smtp.NewSender(smtp.Config{
			Host:     smtpCfg.Host,
			Port:     smtpCfg.Port,
			Username: smtpCfg.Username,
			Password: smtpCfg.Password,
		}, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported sender type: %s", senderCfg.Type)
	}
}
