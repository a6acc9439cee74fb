package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/statuspulse/statuspulse/internal/database"
)

// EmailConfig holds SMTP sender configuration.
type EmailConfig struct {
	Enabled     bool
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPassword string
	FromAddress string
}

// EmailSender delivers plain-text notifications over SMTP.
type EmailSender struct {
	config EmailConfig
	auth   smtp.Auth
}

// NewEmailSender creates an email sender. Returns an error if enabled but
// required config is missing.
func NewEmailSender(config EmailConfig) (*EmailSender, error) {
	if config.Enabled {
		if config.SMTPHost == "" {
			return nil, errors.New("email sender: SMTP host is required when enabled")
		}
		if config.FromAddress == "" {
			return nil, errors.New("email sender: from address is required when enabled")
		}
	}
	if config.SMTPPort == 0 {
		config.SMTPPort = 587
	}

	var auth smtp.Auth
	if config.SMTPUser != "" && config.SMTPassword != "" {
		auth = smtp.PlainAuth("", config.SMTPUser, config.SMTPassword, config.SMTPHost)
	}

	return &EmailSender{config: config, auth: auth}, nil
}

// Type returns the channel type.
func (s *EmailSender) Type() database.ChannelType {
	return database.ChannelTypeEmail
}

// Send delivers one plain-text email to n.Target.
func (s *EmailSender) Send(ctx context.Context, n Notification) error {
	if !s.config.Enabled {
		return errors.New("email sender is disabled")
	}
	if n.Target == "" {
		return errors.New("email recipient is empty")
	}

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	msg := buildMessage(s.config.FromAddress, n.Target, n.Subject, n.Body)
	if err := smtp.SendMail(addr, s.auth, s.config.FromAddress, []string{n.Target}, msg); err != nil {
		return fmt.Errorf("send email to %s: %w", n.Target, err)
	}
	return nil
}

// buildMessage constructs the email with headers in deterministic order.
func buildMessage(from, to, subject, body string) []byte {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}
