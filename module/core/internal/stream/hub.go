package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nandanugg/collector-tracker/module/core/domain"
	"github.com/nandanugg/collector-tracker/module/core/internal/repository/publisher"
)

var _ publisher.EventPublisher = (*Hub)(nil)

const (
	channelPrefix  = "collector:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
	clientBuffer   = 64
)

// Hub fans live events out to websocket clients watching a collector. With
// redis configured, events travel through redis pub/sub so every replica
// serving a watcher receives them; otherwise delivery is in-process.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	UserID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := userClients[client]; !ok {
		return
	}
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.Send)
}

// Watchers returns the number of clients registered for userID.
func (h *Hub) Watchers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Publish(ctx context.Context, evt domain.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return h.Broadcast(ctx, evt.UserID, payload)
}

func (h *Hub) Broadcast(ctx context.Context, userID string, payload []byte) error {
	if h.redis == nil {
		h.deliver(userID, payload)
		return nil
	}
	if err := h.redis.Publish(ctx, redisChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run relays redis messages to local clients until ctx is done. It returns
// immediately when redis is not configured.
func (h *Hub) Run(ctx context.Context) error {
	if h.redis == nil {
		return nil
	}

	pubsub := h.redis.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID := userIDFromChannel(msg.Channel)
			if userID == "" {
				log.Warn().Str("channel", msg.Channel).Msg("unexpected stream channel")
				continue
			}
			h.deliver(userID, []byte(msg.Payload))
		}
	}
}

// deliver drops the payload for clients whose buffer is full.
func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.Send <- payload:
		default:
			log.Debug().Str("user_id", userID).Msg("stream client lagging, dropped event")
		}
	}
}

func redisChannel(userID string) string {
	return channelPrefix + userID + channelSuffix
}

func userIDFromChannel(ch string) string {
	// collector:{userId}:events
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
