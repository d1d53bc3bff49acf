package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sparkslk/sparks-backend/internal/database"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultCacheTTL is 8 hours
	DefaultCacheTTL = 8 * time.Hour
	// MinCacheTTL is 6 hours
	MinCacheTTL = 6 * time.Hour
	// MaxCacheTTL is 12 hours
	MaxCacheTTL = 12 * time.Hour
)

// CacheService provides JSON caching for read-heavy, rarely-changing data
// (therapist profiles). Writers delete the key after mutating.
type CacheService struct{}

// Get retrieves a value from cache. A miss is not an error.
func (c *CacheService) Get(key string, dest interface{}) (bool, error) {
	ctx := context.Background()

	val, err := database.RedisClient.Get(ctx, CacheKeyPrefix+key).Result()
	if err != nil {
		return false, nil
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}

	return true, nil
}

// Set stores a value in cache with default TTL.
func (c *CacheService) Set(key string, value interface{}) error {
	return c.SetWithTTL(key, value, DefaultCacheTTL)
}

// SetWithTTL stores a value in cache with custom TTL (clamped to 6-12 hours).
func (c *CacheService) SetWithTTL(key string, value interface{}, ttl time.Duration) error {
	if ttl < MinCacheTTL {
		ttl = MinCacheTTL
	}
	if ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return database.RedisClient.Set(context.Background(), CacheKeyPrefix+key, jsonData, ttl).Err()
}

// Delete removes a value from cache.
func (c *CacheService) Delete(key string) error {
	return database.RedisClient.Del(context.Background(), CacheKeyPrefix+key).Err()
}
