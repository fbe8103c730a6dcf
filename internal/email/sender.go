package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/config"
)

// Sender defines the interface for sending emails.
// Send returns the Message-ID of the delivered message.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	cfg  *config.Config
	auth smtp.Auth
	addr string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a new SMTPSender.
// It returns Sender so we can easily swap implementations (e.g., for testing).
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Warn("SMTP host not configured, using logging email sender")
		return &LoggingSender{cfg: cfg}
	}

	var auth smtp.Auth
	if cfg.SmtpUsername != "" {
		auth = smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	}

	return &SMTPSender{
		cfg:  cfg,
		auth: auth,
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
		send: smtp.SendMail,
	}
}

// Send sends an email using SMTP.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fillFrom(msg, s.cfg)
	messageID := NewMessageID(msg.From)
	raw, err := Build(msg, messageID, time.Now())
	if err != nil {
		return "", err
	}

	if err := s.send(s.addr, s.auth, msg.From, msg.To, raw); err != nil {
		log.WithFields(log.Fields{"to": msg.To, "subject": msg.Subject}).WithError(err).Error("Failed to send email via SMTP")
		return "", fmt.Errorf("smtp error: %w", classify(err))
	}
	log.WithFields(log.Fields{"to": msg.To, "subject": msg.Subject, "messageId": messageID}).Info("Email sent via SMTP")
	return messageID, nil
}

// LoggingSender is a mock implementation that just logs email details.
// Useful for development or when SMTP isn't configured.
type LoggingSender struct {
	cfg *config.Config
}

// Send logs the email details instead of sending.
func (s *LoggingSender) Send(ctx context.Context, msg *Message) (string, error) {
	fillFrom(msg, s.cfg)
	messageID := NewMessageID(msg.From)
	log.WithFields(log.Fields{
		"to":        strings.Join(msg.To, ", "),
		"from":      msg.From,
		"subject":   msg.Subject,
		"messageId": messageID,
	}).Info("Email logged, not sent")
	log.Debug(msg.Text)
	return messageID, nil
}

func fillFrom(msg *Message, cfg *config.Config) {
	if msg.From == "" {
		msg.From = cfg.SmtpFromAddress
	}
	if msg.FromName == "" {
		msg.FromName = cfg.SmtpFromName
	}
}
