package email

import (
	"context"
	"errors"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/config"
)

// ErrNotConfigured is returned when email is enabled but SMTP settings are incomplete.
var ErrNotConfigured = errors.New("missing EMAIL_* settings")

type Sender interface {
	SendLeadNotification(ctx context.Context, toEmail string, lead domain.Lead) error
	SendText(ctx context.Context, toEmail, subject, text string) error
}

type NoopSender struct{}

func (NoopSender) SendLeadNotification(ctx context.Context, toEmail string, lead domain.Lead) error {
	return nil
}

func (NoopSender) SendText(ctx context.Context, toEmail, subject, text string) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when EMAIL_ENABLED is false.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg)
}
