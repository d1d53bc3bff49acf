package services

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkslk/sparks-backend/internal/database"
)

func setupTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr
}

func TestRequestOTPSetsCodeAndCooldown(t *testing.T) {
	mr := setupTestRedis(t)
	ctx := context.Background()

	code, err := RequestOTP(ctx, "parent@example.com")
	require.NoError(t, err)
	assert.Len(t, code, 6)

	stored, err := mr.Get(OTPKeyPrefix + "parent@example.com")
	require.NoError(t, err)
	assert.Equal(t, code, stored)

	// Expiry and cooldown are independent keys with their own TTLs
	assert.Equal(t, OTPTTL, mr.TTL(OTPKeyPrefix+"parent@example.com"))
	assert.Equal(t, OTPResendCooldown, mr.TTL(OTPCooldownKeyPrefix+"parent@example.com"))
}

func TestRequestOTPDuringCooldownReturnsRemaining(t *testing.T) {
	mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := RequestOTP(ctx, "parent@example.com")
	require.NoError(t, err)

	_, err = RequestOTP(ctx, "parent@example.com")
	assert.ErrorIs(t, err, ErrOTPCooldown)
	assert.Greater(t, OTPCooldownRemaining(ctx, "parent@example.com"), 0)

	// Once the cooldown lapses a new code can be requested even though the
	// old code is still live (600s > 60s)
	mr.FastForward(OTPResendCooldown + time.Second)
	assert.Equal(t, 0, OTPCooldownRemaining(ctx, "parent@example.com"))

	code2, err := RequestOTP(ctx, "parent@example.com")
	require.NoError(t, err)

	// Reissuing resets both TTLs
	assert.Equal(t, OTPTTL, mr.TTL(OTPKeyPrefix+"parent@example.com"))
	assert.Equal(t, OTPResendCooldown, mr.TTL(OTPCooldownKeyPrefix+"parent@example.com"))

	stored, err := mr.Get(OTPKeyPrefix + "parent@example.com")
	require.NoError(t, err)
	assert.Equal(t, code2, stored)
}

func TestVerifyOTPIsSingleUse(t *testing.T) {
	setupTestRedis(t)
	ctx := context.Background()

	code, err := RequestOTP(ctx, "parent@example.com")
	require.NoError(t, err)

	token, err := VerifyOTP(ctx, "parent@example.com", code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// The code is deleted on success
	_, err = VerifyOTP(ctx, "parent@example.com", code)
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestVerifyOTPExpires(t *testing.T) {
	mr := setupTestRedis(t)
	ctx := context.Background()

	code, err := RequestOTP(ctx, "parent@example.com")
	require.NoError(t, err)

	mr.FastForward(OTPTTL + time.Second)

	_, err = VerifyOTP(ctx, "parent@example.com", code)
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestVerifyOTPBurnsCodeAfterTooManyAttempts(t *testing.T) {
	setupTestRedis(t)
	ctx := context.Background()

	code, err := RequestOTP(ctx, "parent@example.com")
	require.NoError(t, err)

	for i := 0; i < OTPMaxAttempts; i++ {
		_, err = VerifyOTP(ctx, "parent@example.com", "000001")
		assert.ErrorIs(t, err, ErrOTPMismatch)
	}

	_, err = VerifyOTP(ctx, "parent@example.com", "000001")
	assert.ErrorIs(t, err, ErrOTPTooManyAttempts)

	// Burned: even the right code is rejected now
	_, err = VerifyOTP(ctx, "parent@example.com", code)
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestConsumeResetTokenIsSingleUse(t *testing.T) {
	setupTestRedis(t)
	ctx := context.Background()

	code, err := RequestOTP(ctx, "parent@example.com")
	require.NoError(t, err)
	token, err := VerifyOTP(ctx, "parent@example.com", code)
	require.NoError(t, err)

	assert.Error(t, ConsumeResetToken(ctx, "parent@example.com", "not-the-token"))

	require.NoError(t, ConsumeResetToken(ctx, "parent@example.com", token))
	assert.ErrorIs(t, ConsumeResetToken(ctx, "parent@example.com", token), ErrResetTokenInvalid)
}

func TestSessionRoundTrip(t *testing.T) {
	setupTestRedis(t)

	userID := uuid.New()
	token, err := CreateSession(userID, "parent")
	require.NoError(t, err)

	data, valid, err := ValidateSession(token)
	require.NoError(t, err)
	require.True(t, valid)
	assert.Equal(t, userID, data.UserID)
	assert.Equal(t, "parent", string(data.Role))

	// A second session for the same user invalidates the first
	token2, err := CreateSession(userID, "parent")
	require.NoError(t, err)
	_, valid, err = ValidateSession(token)
	require.NoError(t, err)
	assert.False(t, valid)

	require.NoError(t, InvalidateUserSessions(userID))
	_, valid, err = ValidateSession(token2)
	require.NoError(t, err)
	assert.False(t, valid)
}
