package models

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation groups messages between one parent and one therapist about a
// named child. The membership record lives in PostgreSQL; message bodies are
// stored in MongoDB.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ParentID    uuid.UUID `json:"parent_id"`
	TherapistID uuid.UUID `json:"therapist_id"`
	ChildID     uuid.UUID `json:"child_id"`
	ChildName   string    `json:"child_name"`

	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// ConversationMessage is stored in MongoDB, one document per message.
type ConversationMessage struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	SenderID       string             `bson:"sender_id" json:"sender_id"`
	SenderRole     string             `bson:"sender_role" json:"sender_role"` // "parent" or "therapist"
	Text           string             `bson:"text" json:"text"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	Read           bool               `bson:"read" json:"read"`
}
