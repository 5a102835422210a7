package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	applog "walletwatch/internal/log"
)

// Receipt describes an accepted message.
type Receipt struct {
	MessageID string
}

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) (Receipt, error)
}

// SMTPConfig holds transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Secure selects implicit TLS (usually port 465) instead of STARTTLS.
	Secure bool
}

// SMTPSender sends mail through an SMTP relay. A fresh connection is dialed
// per message since batch jobs send at most a few times a day.
type SMTPSender struct {
	client *gomail.Client
	from   string
	logger *slog.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}

	if cfg.Port == 0 {
		cfg.Port = 587
	}
	opts := []gomail.Option{gomail.WithPort(cfg.Port)}
	if cfg.Secure {
		opts = append(opts, gomail.WithSSLPort(false))
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{
		client: client,
		from:   cfg.From,
		logger: applog.WithComponent(logger, applog.ComponentMail),
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) (Receipt, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat("WalletWatch", s.from); err != nil {
		return Receipt{}, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return Receipt{}, fmt.Errorf("set recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetMessageID()
	msg.SetBodyString(gomail.TypeTextHTML, html)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send email", "to", to, "subject", subject, applog.FieldError, err)
		return Receipt{}, fmt.Errorf("send email to %s: %w", to, err)
	}

	receipt := Receipt{}
	if ids := msg.GetGenHeader(gomail.HeaderMessageID); len(ids) > 0 {
		receipt.MessageID = ids[0]
	}
	s.logger.InfoContext(ctx, "Email sent", "to", to, "subject", subject, "message_id", receipt.MessageID)
	return receipt, nil
}

// LogSender only logs messages. It is used when SMTP is not configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: applog.WithComponent(logger, applog.ComponentMail)}
}

func (s *LogSender) Send(ctx context.Context, to, subject, html string) (Receipt, error) {
	s.logger.InfoContext(ctx, "Email not sent, SMTP disabled", "to", to, "subject", subject, "bytes", len(html))
	return Receipt{MessageID: "log-only"}, nil
}
