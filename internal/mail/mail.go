// Package mail sends the rendered notification emails.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/config"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender delivers HTML mail through an SMTP relay.
type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	from     string
	fromName string
}

// NewSMTPSender builds a sender for cfg.  Authentication is skipped when no
// user is configured (e.g. a local relay such as MailHog).
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}
	return &SMTPSender{
		addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		auth:     auth,
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := mailyak.New(s.addr, s.auth)
	m.To(to)
	m.From(s.from)
	m.FromName(s.fromName)
	m.Subject(subject)
	m.HTML().Set(htmlBody)
	if err := m.Send(); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogSender only logs.  It is used when SMTP is not configured.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, _ string) error {
	if s.Log != nil {
		s.Log.Info("mail (not sent, smtp disabled)", zap.String("to", to), zap.String("subject", subject))
	}
	return nil
}

// New picks the SMTP sender when a host is configured.
func New(cfg config.MailConfig, log *zap.Logger) Sender {
	if cfg.Host == "" {
		return LogSender{Log: log}
	}
	return NewSMTPSender(cfg)
}
