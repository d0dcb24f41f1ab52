package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel notifications travel on.
const Channel = "beboard:notifications"

// Message is a fire-and-forget notification for a single recipient. It is
// never persisted; a relay restart loses in-flight messages by design of the
// at-most-once contract.
type Message struct {
	ID          string    `json:"id"`
	RecipientID int       `json:"recipient_id"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMessage builds a Message with a fresh id and timestamp.
func NewMessage(recipientID int, content, url, msgType string) Message {
	return Message{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Content:     content,
		URL:         url,
		Type:        msgType,
		CreatedAt:   time.Now().UTC(),
	}
}

// Publisher sends notifications into the relay channel.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to Redis and returns a Publisher that emits
// JSON-encoded messages on the notification channel.
func NewRedisPublisher(redisURL string) (Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisPublisher{client: client}, nil
}

func (p *redisPublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := p.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
