package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/config"
)

// FileEmailSender implements the Sender interface by writing email content to a file.
type FileEmailSender struct {
	filePath string
	cfg      *config.Config
}

// NewFileEmailSender creates a new FileEmailSender.
// It ensures the directory for the log file exists.
func NewFileEmailSender(filePath string, cfg *config.Config) (Sender, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("email log file path cannot be empty")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for email log file '%s': %w", dir, err)
	}

	return &FileEmailSender{
		filePath: filePath,
		cfg:      cfg,
	}, nil
}

// Send appends the rendered MIME message to the configured file.
func (s *FileEmailSender) Send(ctx context.Context, msg *Message) (string, error) {
	fillFrom(msg, s.cfg)
	now := time.Now()
	messageID := NewMessageID(msg.From)
	raw, err := Build(msg, messageID, now)
	if err != nil {
		return "", err
	}

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open email log file: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("--- Email Logged at %s (To: %v, Subject: %s) ---\n", now.Format(time.RFC3339Nano), msg.To, msg.Subject)
	entry += string(raw)
	entry += "\n--- End Logged Email ---\n\n"

	if _, err := file.WriteString(entry); err != nil {
		return "", fmt.Errorf("failed to write email to log file: %w", err)
	}

	log.WithFields(log.Fields{"to": msg.To, "file": s.filePath}).Debug("Email written to file")
	return messageID, nil
}
