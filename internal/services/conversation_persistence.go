package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
)

const messagesCollection = "conversation_messages"

// EnsureMessageIndexes configures indexes for the conversation_messages
// collection. Called on startup from main after Mongo has connected.
func EnsureMessageIndexes(ctx context.Context) error {
	col := database.DB.Collection(messagesCollection)

	// Compound index on (conversation_id, created_at) to support efficient
	// newest-first pagination.
	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "conversation_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_conversation_created"),
		},
		{
			Keys: bson.D{
				{Key: "conversation_id", Value: 1},
				{Key: "read", Value: 1},
			},
			Options: options.Index().SetName("idx_conversation_read"),
		},
	}

	for _, m := range indexModels {
		if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// SaveMessage persists a message and returns it with the generated ID.
func SaveMessage(ctx context.Context, msg models.ConversationMessage) (models.ConversationMessage, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	col := database.DB.Collection(messagesCollection)
	res, err := col.InsertOne(ctx, msg)
	if err != nil {
		return msg, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return msg, nil
}

// LoadMessages returns paginated history for a conversation. Pagination is
// created_at-based (newest-first scrolling); the returned slice is
// oldest-first for rendering. hasMore tells the client whether older
// messages exist beyond the page.
func LoadMessages(ctx context.Context, conversationID string, before *time.Time, limit int64) ([]models.ConversationMessage, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	col := database.DB.Collection(messagesCollection)

	filter := bson.M{"conversation_id": conversationID}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": before.UTC()}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	var msgs []models.ConversationMessage
	for cur.Next(ctx) {
		var m models.ConversationMessage
		if err := cur.Decode(&m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	if err := cur.Err(); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:len(msgs)-1]
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, hasMore, nil
}

// MarkMessagesRead marks every message in the conversation not sent by
// readerID as read. Returns the number of messages updated.
func MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	col := database.DB.Collection(messagesCollection)

	res, err := col.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": readerID},
			"read":            false,
		},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountUnread returns how many messages in the conversation are unread by
// readerID.
func CountUnread(ctx context.Context, conversationID, readerID string) (int64, error) {
	col := database.DB.Collection(messagesCollection)
	return col.CountDocuments(ctx, bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": readerID},
		"read":            false,
	})
}

// LatestMessage returns the newest message in a conversation, or nil when
// the conversation has no messages yet.
func LatestMessage(ctx context.Context, conversationID string) (*models.ConversationMessage, error) {
	col := database.DB.Collection(messagesCollection)

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var m models.ConversationMessage
	err := col.FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
