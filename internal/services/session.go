package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionData is what a session token resolves to.
type SessionData struct {
	UserID uuid.UUID   `json:"userId"`
	Role   models.Role `json:"role"`
}

// CreateSession creates a new session for a user and stores it in Redis.
// If the user already has a session, the old one is invalidated so the
// 7-day timer resets from the current login. Returns the session token.
func CreateSession(userID uuid.UUID, role models.Role) (string, error) {
	InvalidateUserSessions(userID)

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	sessionToken := base64.URLEncoding.EncodeToString(tokenBytes)

	ctx := context.Background()
	sessionKey := SessionKeyPrefix + sessionToken
	userSessionKey := UserSessionKeyPrefix + userID.String()

	payload, err := json.Marshal(SessionData{UserID: userID, Role: role})
	if err != nil {
		return "", err
	}

	if err := database.RedisClient.Set(ctx, sessionKey, payload, SessionDuration).Err(); err != nil {
		return "", err
	}
	if err := database.RedisClient.Set(ctx, userSessionKey, sessionToken, SessionDuration).Err(); err != nil {
		return "", err
	}

	return sessionToken, nil
}

// ValidateSession checks if a session token is valid and returns its data.
func ValidateSession(sessionToken string) (SessionData, bool, error) {
	if sessionToken == "" {
		return SessionData{}, false, nil
	}

	ctx := context.Background()
	raw, err := database.RedisClient.Get(ctx, SessionKeyPrefix+sessionToken).Result()
	if err != nil {
		return SessionData{}, false, nil
	}

	var data SessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return SessionData{}, false, err
	}

	return data, true, nil
}

// RefreshSession extends the session expiration by 7 days from now.
func RefreshSession(sessionToken string) error {
	if sessionToken == "" {
		return fmt.Errorf("session token is empty")
	}

	ctx := context.Background()
	sessionKey := SessionKeyPrefix + sessionToken

	raw, err := database.RedisClient.Get(ctx, sessionKey).Result()
	if err != nil {
		return err
	}

	var data SessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return err
	}

	userSessionKey := UserSessionKeyPrefix + data.UserID.String()

	if err := database.RedisClient.Expire(ctx, sessionKey, SessionDuration).Err(); err != nil {
		return err
	}
	return database.RedisClient.Expire(ctx, userSessionKey, SessionDuration).Err()
}

// InvalidateSession removes a session from Redis.
func InvalidateSession(sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	ctx := context.Background()
	sessionKey := SessionKeyPrefix + sessionToken

	raw, err := database.RedisClient.Get(ctx, sessionKey).Result()
	if err == nil && raw != "" {
		var data SessionData
		if err := json.Unmarshal([]byte(raw), &data); err == nil {
			database.RedisClient.Del(ctx, UserSessionKeyPrefix+data.UserID.String())
		}
	}

	return database.RedisClient.Del(ctx, sessionKey).Err()
}

// InvalidateUserSessions invalidates all sessions for a user (used when the
// password changes).
func InvalidateUserSessions(userID uuid.UUID) error {
	ctx := context.Background()
	userSessionKey := UserSessionKeyPrefix + userID.String()

	sessionToken, err := database.RedisClient.Get(ctx, userSessionKey).Result()
	if err == nil && sessionToken != "" {
		database.RedisClient.Del(ctx, SessionKeyPrefix+sessionToken)
	}

	return database.RedisClient.Del(ctx, userSessionKey).Err()
}
