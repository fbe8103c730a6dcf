package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/config"
)

// MockEmailTTL is how long a mock email stays readable in Redis.
const MockEmailTTL = 5 * time.Minute

// MockEmailKey is the Redis key a mock email is stored under.
func MockEmailKey(to, kind string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), kind)
}

// RedisSender implements the Sender interface by storing emails in Redis.
// The service API reads them back for end-to-end tests.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// Send stores a representation of the email in Redis instead of sending it via SMTP.
func (s *RedisSender) Send(ctx context.Context, msg *Message) (string, error) {
	fillFrom(msg, s.cfg)
	kind := msg.Kind
	if kind == "" {
		kind = "unknown"
	}
	primaryTo := ""
	if len(msg.To) > 0 {
		primaryTo = msg.To[0]
	}
	messageID := NewMessageID(msg.From)

	emailData := map[string]interface{}{
		"to":        strings.Join(msg.To, ", "),
		"from":      msg.From,
		"subject":   msg.Subject,
		"text":      msg.Text,
		"html":      msg.HTML,
		"messageId": messageID,
		"sentAt":    time.Now().UTC().Format(time.RFC3339Nano),
		"kind":      kind,
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(primaryTo, kind)
	if err := s.client.Set(ctx, key, jsonData, MockEmailTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	log.WithFields(log.Fields{"key": key, "subject": msg.Subject}).Debug("Mock email stored in Redis")
	return messageID, nil
}
