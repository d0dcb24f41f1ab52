package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

const sessionBuffer = 16

type session struct {
	userID int
	ch     chan Message
}

// Hub routes relayed notifications to the recipient's live sessions. A user
// may hold several sessions (multiple tabs); each gets its own buffered
// channel, and a session that falls behind drops messages rather than
// blocking the relay.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int]map[*session]struct{}
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[int]map[*session]struct{})}
}

// Subscribe registers a live session for userID. The returned cancel func
// must be called when the session ends.
func (h *Hub) Subscribe(userID int) (<-chan Message, func()) {
	s := &session{userID: userID, ch: make(chan Message, sessionBuffer)}

	h.mu.Lock()
	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*session]struct{})
	}
	h.sessions[userID][s] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.sessions[userID]; ok {
			if _, live := set[s]; live {
				delete(set, s)
				close(s.ch)
			}
			if len(set) == 0 {
				delete(h.sessions, userID)
			}
		}
		h.mu.Unlock()
	}

	return s.ch, cancel
}

// Dispatch delivers msg to every live session of its recipient.
func (h *Hub) Dispatch(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.sessions[msg.RecipientID] {
		select {
		case s.ch <- msg:
		default:
			// Slow consumer, drop. Delivery is best-effort.
		}
	}
}

// SessionCount reports the number of live sessions for a user.
func (h *Hub) SessionCount(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Run subscribes to the Redis notification channel and dispatches incoming
// messages until ctx is cancelled. Malformed payloads are logged and skipped.
func (h *Hub) Run(ctx context.Context, redisURL string) error {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	defer client.Close()

	sub := client.Subscribe(ctx, Channel)
	defer sub.Close()

	log.Printf("✅ Notification relay subscribed to %s", Channel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				log.Printf("Dropping malformed notification: %v", err)
				continue
			}
			h.Dispatch(msg)
		}
	}
}
