// Package mailer sends transactional email. Delivery is best-effort:
// callers log failures and carry on.
package mailer

import (
	"context"
	"fmt"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/wneessen/go-mail"
)

type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// New returns an SMTP sender, or a log-only sender when no host is set.
func New(cfg config.MailConfig) (Sender, error) {
	if cfg.Host == "" {
		logger.Warn("SMTP host not configured, emails will only be logged")
		return LogSender{}, nil
	}
	return NewSMTPSender(cfg)
}

type SMTPSender struct {
	client *mail.Client
	from   string
}

func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	logger.Info("Email sent", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}

// LogSender writes the email to the log instead of delivering it.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, _ string) error {
	logger.Info("Email not delivered (no SMTP configured)", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}
