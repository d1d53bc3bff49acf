package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
	"github.com/sparkslk/sparks-backend/internal/services"
)

var messageUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// WSClientMessage represents messages coming from the frontend over WebSocket.
type WSClientMessage struct {
	Type           string `json:"type"` // "message", "read", "ping"
	ConversationID string `json:"conversationId"`
	Text           string `json:"text,omitempty"`
}

// MessagesWebSocket handles real-time messaging over WebSocket.
// Authentication is via the session token (Authorization: Bearer <token>,
// or a token query parameter for browser clients). Each connection is bound
// to a single conversation via the conversation_id query parameter.
func MessagesWebSocket(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing session token", http.StatusUnauthorized)
			return
		}
	}

	session, ok, err := services.ValidateSession(token)
	if err != nil || !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}
	if session.Role != models.RoleParent && session.Role != models.RoleTherapist {
		http.Error(w, "messaging is not available for this role", http.StatusForbidden)
		return
	}

	conversationIDStr := r.URL.Query().Get("conversation_id")
	conversationID, err := uuid.Parse(conversationIDStr)
	if err != nil {
		http.Error(w, "conversation_id is required", http.StatusBadRequest)
		return
	}
	if _, member := conversationMember(conversationID, session.UserID); !member {
		http.Error(w, "you are not part of this conversation", http.StatusForbidden)
		return
	}

	conn, err := messageUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	uc := services.RegisterUserConnection(session.UserID, conn)
	defer services.UnregisterUserConnection(session.UserID)
	services.SubscribeUserToConversation(session.UserID, conversationID.String())
	defer services.UnsubscribeUserFromConversation(session.UserID, conversationID.String())

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var msg WSClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "ping":
			// Through the connection's write lock so a concurrent fan-out
			// cannot interleave with the pong
			uc.WriteJSON(map[string]string{"type": "pong"})

		case "message":
			text := strings.TrimSpace(msg.Text)
			if text == "" || len(text) > 5000 {
				continue
			}

			saved, err := services.SaveMessage(r.Context(), models.ConversationMessage{
				ConversationID: conversationID.String(),
				SenderID:       session.UserID.String(),
				SenderRole:     string(session.Role),
				Text:           text,
				CreatedAt:      time.Now().UTC(),
			})
			if err != nil {
				continue
			}

			database.PostgresDB.Exec(
				"UPDATE conversations SET last_message_at = $1 WHERE id = $2",
				saved.CreatedAt, conversationID)

			services.PublishMessageEvent(r.Context(), services.MessageEvent{
				Type:           "message",
				ConversationID: conversationID.String(),
				SenderID:       saved.SenderID,
				SenderRole:     saved.SenderRole,
				Text:           saved.Text,
				Timestamp:      saved.CreatedAt,
			})

		case "read":
			services.MarkMessagesRead(r.Context(), conversationID.String(), session.UserID.String())
			services.PublishMessageEvent(r.Context(), services.MessageEvent{
				Type:           "read",
				ConversationID: conversationID.String(),
				SenderID:       session.UserID.String(),
			})
		}
	}
}
