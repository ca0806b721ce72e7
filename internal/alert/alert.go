// Package alert is the operator notification side channel. It is used for
// two failure classes only: exhausted extraction retries and fatal
// whole-document errors.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Notifier delivers an operator alert. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// SMTPConfig holds settings for the email notifier.
type SMTPConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	AdminEmail string
}

// SMTPNotifier emails the configured admin address.
type SMTPNotifier struct {
	cfg SMTPConfig
}

// NewSMTPNotifier creates an email notifier.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

// Notify sends the alert email.
func (n *SMTPNotifier) Notify(_ context.Context, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)

	msg := strings.Join([]string{
		"From: " + n.cfg.User,
		"To: " + n.cfg.AdminEmail,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, n.cfg.User, []string{n.cfg.AdminEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

// LogNotifier writes alerts to the log. Used when no SMTP settings are
// configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the alert at error level.
func (n *LogNotifier) Notify(_ context.Context, subject, body string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("operator alert", "subject", subject, "body", body)
	return nil
}

// Verify interfaces
var (
	_ Notifier = (*SMTPNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
