package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/config"
)

// RedisSender stores emails in Redis instead of delivering them. Integration
// tests read them back to assert on booking notifications without a mail
// server.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// CapturedEmail is the JSON shape stored per captured message.
type CapturedEmail struct {
	To       []string  `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	StoredAt time.Time `json:"stored_at"`
}

const capturedEmailTTL = 10 * time.Minute

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{client: client, cfg: cfg}
}

// CapturedEmailKey returns the key under which mail for an address is stored.
func CapturedEmailKey(to string) string {
	return fmt.Sprintf("captured_email:%s", to)
}

// Send pushes the email onto a per-recipient Redis list with a short TTL.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	captured := CapturedEmail{
		To:       to,
		Subject:  subject,
		Body:     string(rawMessage),
		StoredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(captured)
	if err != nil {
		return fmt.Errorf("failed to serialize captured email: %w", err)
	}

	for _, recipient := range to {
		key := CapturedEmailKey(recipient)
		if err := s.client.RPush(ctx, key, data).Err(); err != nil {
			return fmt.Errorf("failed to store captured email for %s: %w", recipient, err)
		}
		if err := s.client.Expire(ctx, key, capturedEmailTTL).Err(); err != nil {
			log.Printf("WARNING: failed to set TTL on captured email key %s: %v", key, err)
		}
	}
	return nil
}
