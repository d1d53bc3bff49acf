package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/sparkslk/sparks-backend/internal/database"
)

const (
	// OTPTTL is how long a one-time password stays valid (10 minutes)
	OTPTTL = 600 * time.Second
	// OTPResendCooldown gates how often a new OTP may be requested
	OTPResendCooldown = 60 * time.Second
	// OTPMaxAttempts is the number of wrong codes tolerated before the OTP is burned
	OTPMaxAttempts = 5
	// ResetTokenTTL is how long a verification token stays valid after OTP verify
	ResetTokenTTL = 10 * time.Minute

	// OTPKeyPrefix is the Redis key prefix for active codes
	OTPKeyPrefix = "otp:"
	// OTPCooldownKeyPrefix is the Redis key prefix for resend cooldowns
	OTPCooldownKeyPrefix = "otp_cooldown:"
	// OTPAttemptsKeyPrefix is the Redis key prefix for failed-attempt counters
	OTPAttemptsKeyPrefix = "otp_attempts:"
	// ResetTokenKeyPrefix is the Redis key prefix for verification tokens
	ResetTokenKeyPrefix = "pwreset_token:"
)

var (
	// ErrOTPCooldown means a code was requested again inside the resend window.
	ErrOTPCooldown = errors.New("otp resend cooldown active")
	// ErrOTPExpired means no active code exists for the email.
	ErrOTPExpired = errors.New("otp expired or not requested")
	// ErrOTPMismatch means the supplied code was wrong.
	ErrOTPMismatch = errors.New("incorrect otp")
	// ErrOTPTooManyAttempts means the code was burned after repeated failures.
	ErrOTPTooManyAttempts = errors.New("too many incorrect attempts")
	// ErrResetTokenInvalid means the verification token is missing, wrong, or used.
	ErrResetTokenInvalid = errors.New("invalid or expired verification token")
)

// RequestOTP generates and stores a 6-digit code for the email with a 600s
// TTL, and arms the 60s resend cooldown. The expiry TTL and the cooldown are
// independent keys: a successful request always resets both.
// Returns ErrOTPCooldown while the cooldown key is live; use
// OTPCooldownRemaining for the seconds left.
func RequestOTP(ctx context.Context, email string) (string, error) {
	cooldownKey := OTPCooldownKeyPrefix + email

	exists, err := database.RedisClient.Exists(ctx, cooldownKey).Result()
	if err == nil && exists > 0 {
		return "", ErrOTPCooldown
	}

	code, err := generateOTPCode()
	if err != nil {
		return "", err
	}

	pipe := database.RedisClient.TxPipeline()
	pipe.Set(ctx, OTPKeyPrefix+email, code, OTPTTL)
	pipe.Set(ctx, cooldownKey, "1", OTPResendCooldown)
	pipe.Del(ctx, OTPAttemptsKeyPrefix+email)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}

	return code, nil
}

// OTPCooldownRemaining returns the whole seconds left on the resend cooldown,
// or 0 when no cooldown is active.
func OTPCooldownRemaining(ctx context.Context, email string) int {
	ttl, err := database.RedisClient.TTL(ctx, OTPCooldownKeyPrefix+email).Result()
	if err != nil || ttl <= 0 {
		return 0
	}
	return int(ttl.Seconds())
}

// VerifyOTP checks the supplied code against the stored one. On success the
// code is deleted (single use) and an opaque verification token is minted and
// stored with its own TTL for the reset step.
func VerifyOTP(ctx context.Context, email, code string) (string, error) {
	stored, err := database.RedisClient.Get(ctx, OTPKeyPrefix+email).Result()
	if err != nil {
		return "", ErrOTPExpired
	}

	attemptsKey := OTPAttemptsKeyPrefix + email
	attempts, err := database.RedisClient.Incr(ctx, attemptsKey).Result()
	if err == nil && attempts == 1 {
		database.RedisClient.Expire(ctx, attemptsKey, OTPTTL)
	}
	if attempts > OTPMaxAttempts {
		// Burn the code so a brute force can't keep guessing
		database.RedisClient.Del(ctx, OTPKeyPrefix+email, attemptsKey)
		return "", ErrOTPTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return "", ErrOTPMismatch
	}

	token, err := generateVerificationToken()
	if err != nil {
		return "", err
	}

	pipe := database.RedisClient.TxPipeline()
	pipe.Del(ctx, OTPKeyPrefix+email, attemptsKey)
	pipe.Set(ctx, ResetTokenKeyPrefix+email, token, ResetTokenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}

	return token, nil
}

// ConsumeResetToken validates the verification token for the email and
// deletes it so it cannot be replayed.
func ConsumeResetToken(ctx context.Context, email, token string) error {
	stored, err := database.RedisClient.Get(ctx, ResetTokenKeyPrefix+email).Result()
	if err != nil {
		return ErrResetTokenInvalid
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return ErrResetTokenInvalid
	}
	return database.RedisClient.Del(ctx, ResetTokenKeyPrefix+email).Err()
}

// generateOTPCode returns a zero-padded 6-digit numeric code.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func generateVerificationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
