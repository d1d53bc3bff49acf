package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
	"github.com/sparkslk/sparks-backend/internal/services"
)

type CreateConversationRequest struct {
	TherapistID string `json:"therapistId"`
	ChildID     string `json:"childId"`
}

type PostMessageRequest struct {
	Text string `json:"text"`
}

// conversationMember checks the caller belongs to the conversation and
// returns the record.
func conversationMember(conversationID, userID uuid.UUID) (models.Conversation, bool) {
	var c models.Conversation
	var lastMessageAt sql.NullTime
	err := database.PostgresDB.QueryRow(`
		SELECT cv.id, cv.created_at, cv.parent_id, cv.therapist_id, cv.child_id, ch.name, cv.last_message_at
		FROM conversations cv
		JOIN children ch ON ch.id = cv.child_id
		WHERE cv.id = $1 AND (cv.parent_id = $2 OR cv.therapist_id = $2)
	`, conversationID, userID).Scan(&c.ID, &c.CreatedAt, &c.ParentID, &c.TherapistID,
		&c.ChildID, &c.ChildName, &lastMessageAt)
	if err != nil {
		return c, false
	}
	if lastMessageAt.Valid {
		t := lastMessageAt.Time
		c.LastMessageAt = &t
	}
	return c, true
}

// GetConversations lists the caller's conversations with unread counts,
// most recently active first.
// GET /api/conversations
func GetConversations(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleParent, models.RoleTherapist)
	if !ok {
		return
	}

	rows, err := database.PostgresDB.Query(`
		SELECT cv.id, cv.created_at, cv.parent_id, cv.therapist_id, cv.child_id, ch.name,
		       cv.last_message_at, pu.name, tu.name
		FROM conversations cv
		JOIN children ch ON ch.id = cv.child_id
		JOIN users pu ON pu.id = cv.parent_id
		JOIN users tu ON tu.id = cv.therapist_id
		WHERE cv.parent_id = $1 OR cv.therapist_id = $1
		ORDER BY cv.last_message_at DESC NULLS LAST, cv.created_at DESC
	`, session.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var c models.Conversation
		var lastMessageAt sql.NullTime
		var parentName, therapistName string
		err := rows.Scan(&c.ID, &c.CreatedAt, &c.ParentID, &c.TherapistID, &c.ChildID,
			&c.ChildName, &lastMessageAt, &parentName, &therapistName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}

		unread, _ := services.CountUnread(r.Context(), c.ID.String(), session.UserID.String())
		latest, _ := services.LatestMessage(r.Context(), c.ID.String())

		entry := map[string]interface{}{
			"id":            c.ID.String(),
			"createdAt":     c.CreatedAt,
			"parentId":      c.ParentID.String(),
			"parentName":    parentName,
			"therapistId":   c.TherapistID.String(),
			"therapistName": therapistName,
			"childId":       c.ChildID.String(),
			"childName":     c.ChildName,
			"unreadCount":   unread,
		}
		if lastMessageAt.Valid {
			entry["lastMessageAt"] = lastMessageAt.Time
		}
		if latest != nil {
			entry["lastMessage"] = map[string]interface{}{
				"text":       latest.Text,
				"senderRole": latest.SenderRole,
				"createdAt":  latest.CreatedAt,
			}
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeSuccess(w, http.StatusOK, "", out)
}

// CreateConversation opens (or returns) the conversation between the calling
// parent and a therapist about one child. Idempotent thanks to the unique
// membership constraint.
// POST /api/conversations
func CreateConversation(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleParent)
	if !ok {
		return
	}

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	therapistID, err := uuid.Parse(req.TherapistID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid therapist id")
		return
	}
	childID, err := uuid.Parse(req.ChildID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid child id")
		return
	}

	// Child must belong to the parent and be assigned to the therapist
	var one int
	err = database.PostgresDB.QueryRow(`
		SELECT 1 FROM children WHERE id = $1 AND parent_id = $2 AND therapist_id = $3
	`, childID, session.UserID, therapistID).Scan(&one)
	if err != nil {
		writeError(w, http.StatusForbidden, "Child is not assigned to this therapist")
		return
	}

	var conversationID uuid.UUID
	err = database.PostgresDB.QueryRow(`
		INSERT INTO conversations (id, created_at, parent_id, therapist_id, child_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (parent_id, therapist_id, child_id) DO UPDATE SET parent_id = EXCLUDED.parent_id
		RETURNING id
	`, uuid.New(), time.Now(), session.UserID, therapistID, childID).Scan(&conversationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}

	writeSuccess(w, http.StatusCreated, "", map[string]interface{}{"id": conversationID.String()})
}

// GetMessages returns paginated history, oldest-first within the page.
// GET /api/conversations/{id}/messages?before=RFC3339&limit=50
func GetMessages(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleParent, models.RoleTherapist)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}
	if _, member := conversationMember(conversationID, session.UserID); !member {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	var before *time.Time
	if b := r.URL.Query().Get("before"); b != "" {
		t, err := time.Parse(time.RFC3339, b)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid before timestamp")
			return
		}
		before = &t
	}

	limit := int64(50)
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.ParseInt(l, 10, 64); err == nil {
			limit = n
		}
	}

	msgs, hasMore, err := services.LoadMessages(r.Context(), conversationID.String(), before, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": msgs,
		"hasMore":  hasMore,
	})
}

// PostMessage appends a message and broadcasts it over Redis for WebSocket
// fan-out on every instance.
// POST /api/conversations/{id}/messages
func PostMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleParent, models.RoleTherapist)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}
	if _, member := conversationMember(conversationID, session.UserID); !member {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "Message text is required")
		return
	}
	if len(req.Text) > 5000 {
		writeError(w, http.StatusBadRequest, "Message is too long")
		return
	}

	msg, err := services.SaveMessage(r.Context(), models.ConversationMessage{
		ConversationID: conversationID.String(),
		SenderID:       session.UserID.String(),
		SenderRole:     string(session.Role),
		Text:           req.Text,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	database.PostgresDB.Exec(
		"UPDATE conversations SET last_message_at = $1 WHERE id = $2",
		msg.CreatedAt, conversationID)

	services.PublishMessageEvent(r.Context(), services.MessageEvent{
		Type:           "message",
		ConversationID: conversationID.String(),
		SenderID:       msg.SenderID,
		SenderRole:     msg.SenderRole,
		Text:           msg.Text,
		Timestamp:      msg.CreatedAt,
	})

	writeSuccess(w, http.StatusCreated, "", msg)
}

// MarkConversationRead marks the other party's messages as read.
// POST /api/conversations/{id}/read
func MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleParent, models.RoleTherapist)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}
	if _, member := conversationMember(conversationID, session.UserID); !member {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	updated, err := services.MarkMessagesRead(r.Context(), conversationID.String(), session.UserID.String())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark messages read")
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]interface{}{"updated": updated})
}
