// Package email renders and delivers transactional mail over SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	gomail "github.com/wneessen/go-mail"
)

// Message is a rendered email ready for delivery.
type Message struct {
	Template string
	To       string
	Subject  string
	HTML     string
	Text     string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	timeout  time.Duration
}

// NewSMTPSender builds a sender from the SMTP_* and EMAIL_FROM settings.
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.EmailFrom,
		timeout:  15 * time.Second,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	err := s.send(ctx, msg)
	outcome := "sent"
	if err != nil {
		outcome = "failed"
		middleware.Logger.ErrorContext(ctx, "email delivery failed",
			slog.String("template", msg.Template),
			slog.String("error", err.Error()))
	}
	observability.EmailsSent.WithLabelValues(msg.Template, outcome).Inc()
	return err
}

func (s *SMTPSender) send(ctx context.Context, msg Message) error {
	if s.host == "" {
		return errors.New("SMTP host is not configured")
	}

	m, err := buildMsg(s.from, msg)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTimeout(s.timeout),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

func buildMsg(from string, msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}
