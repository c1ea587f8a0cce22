// Package email sends staff alerts over SMTP.
package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/gomail.v2"

	"github.com/orris-inc/gatekeeper/internal/shared/config"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// dialer is satisfied by *gomail.Dialer.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPStaffMailer mails staff alerts to a single mailbox. Bodies arrive as
// Telegram HTML and are sent both as HTML and as stripped plain text.
type SMTPStaffMailer struct {
	config config.EmailConfig
	dialer dialer
	strip  *bluemonday.Policy
	logger logger.Interface
}

// NewSMTPStaffMailer returns nil when e-mail is disabled or has no recipient.
func NewSMTPStaffMailer(cfg config.EmailConfig, log logger.Interface) *SMTPStaffMailer {
	if !cfg.Enabled || cfg.StaffAddress == "" {
		return nil
	}
	return &SMTPStaffMailer{
		config: cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		strip:  bluemonday.StrictPolicy(),
		logger: log,
	}
}

func (s *SMTPStaffMailer) SendStaffAlert(ctx context.Context, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	if s.config.FromName != "" {
		m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	} else {
		m.SetHeader("From", s.config.FromAddress)
	}
	m.SetHeader("To", s.config.StaffAddress)
	m.SetHeader("Subject", "[gatekeeper] "+subject)
	m.SetBody("text/plain", s.plainText(htmlBody))
	m.AddAlternative("text/html", "<html><body><p>"+strings.ReplaceAll(htmlBody, "\n", "<br>")+"</p></body></html>")

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Errorw("failed to send staff alert", "subject", subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Debugw("staff alert sent", "subject", subject)
	return nil
}

// plainText drops every tag and decodes entities.
func (s *SMTPStaffMailer) plainText(body string) string {
	return html.UnescapeString(s.strip.Sanitize(body))
}
