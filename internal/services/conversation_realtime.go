package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/database"
)

// MessageEvent represents the payload broadcast over Redis and WebSocket.
type MessageEvent struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversationId,omitempty"`
	SenderID       string    `json:"senderId,omitempty"`
	SenderRole     string    `json:"senderRole,omitempty"`
	Text           string    `json:"text,omitempty"`
	Timestamp      time.Time `json:"timestamp,omitempty"`
}

// UserConnection tracks a single user's WebSocket connection and the
// conversations it is subscribed to.
type UserConnection struct {
	UserID       uuid.UUID
	Conn         MessageConn
	SubscribedTo map[string]struct{}
	mu           sync.RWMutex
	writeMu      sync.Mutex
}

// WriteJSON sends v on the underlying connection. gorilla/websocket allows
// only one concurrent writer, so every write (fan-out and handler replies
// alike) must go through this lock.
func (uc *UserConnection) WriteJSON(v interface{}) error {
	uc.writeMu.Lock()
	defer uc.writeMu.Unlock()
	return uc.Conn.WriteJSON(v)
}

// MessageConn is the minimal interface our WebSocket implementation must satisfy.
type MessageConn interface {
	WriteJSON(v interface{}) error
	ReadJSON(dest interface{}) error
	Close() error
}

// messageHub is a global registry of user connections.
type messageHub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*UserConnection
}

var (
	hub          = &messageHub{connections: make(map[uuid.UUID]*UserConnection)}
	redisStarted sync.Once
)

// RegisterUserConnection registers or replaces a user's connection.
func RegisterUserConnection(userID uuid.UUID, conn MessageConn) *UserConnection {
	uc := &UserConnection{
		UserID:       userID,
		Conn:         conn,
		SubscribedTo: make(map[string]struct{}),
	}

	hub.mu.Lock()
	hub.connections[userID] = uc
	hub.mu.Unlock()

	return uc
}

// UnregisterUserConnection removes a user's connection.
func UnregisterUserConnection(userID uuid.UUID) {
	hub.mu.Lock()
	delete(hub.connections, userID)
	hub.mu.Unlock()
}

// SubscribeUserToConversation tracks a subscription in-memory for fan-out.
func SubscribeUserToConversation(userID uuid.UUID, conversationID string) {
	hub.mu.RLock()
	uc, ok := hub.connections[userID]
	hub.mu.RUnlock()
	if !ok {
		return
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.SubscribedTo[conversationID] = struct{}{}
}

// UnsubscribeUserFromConversation removes a subscription.
func UnsubscribeUserFromConversation(userID uuid.UUID, conversationID string) {
	hub.mu.RLock()
	uc, ok := hub.connections[userID]
	hub.mu.RUnlock()
	if !ok {
		return
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.SubscribedTo, conversationID)
}

// FanOutMessageEvent sends an event to all local connections subscribed to
// the conversation.
func FanOutMessageEvent(event MessageEvent) {
	if event.ConversationID == "" {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, uc := range hub.connections {
		uc.mu.RLock()
		_, subscribed := uc.SubscribedTo[event.ConversationID]
		uc.mu.RUnlock()
		if !subscribed {
			continue
		}

		// Non-blocking best-effort send.
		go func(c *UserConnection) {
			if err := c.WriteJSON(event); err != nil {
				log.Printf("error writing message event to websocket: %v", err)
			}
		}(uc)
	}
}

// StartRedisMessageSubscriber ensures a single shared Redis listener per instance.
func StartRedisMessageSubscriber(ctx context.Context) {
	redisStarted.Do(func() {
		go runRedisSubscriber(ctx)
	})
}

func runRedisSubscriber(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		log.Println("Redis client not initialized; message subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, "messages:conversation:*")
			defer pubsub.Close()

			log.Println("✅ Message Redis subscriber started (pattern: messages:conversation:*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					log.Printf("Redis subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event MessageEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("failed to unmarshal message event: %v", err)
					continue
				}

				FanOutMessageEvent(event)
			}
		}()
	}
}

// PublishMessageEvent publishes an event to Redis so every instance can fan
// it out to its own local connections.
func PublishMessageEvent(ctx context.Context, event MessageEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := "messages:conversation:" + event.ConversationID
	return database.RedisClient.Publish(ctx, channel, data).Err()
}
