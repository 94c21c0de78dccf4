package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/marketplace-payments/internal/payment/domain"
)

// TokenCache stores provider bearer tokens between payment attempts.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}

// tokenSafetyMargin is subtracted from the provider's expires_in.
const tokenSafetyMargin = 60 * time.Second

// TokenCacheKey identifies a token by tenant and a fingerprint of the consumer
// key, so rotating credentials never reuses a stale token.
func TokenCacheKey(creds domain.CredentialSet) string {
	sum := sha256.Sum256([]byte(creds.ConsumerKey))
	return "mpesa:token:" + creds.TenantID + ":" + hex.EncodeToString(sum[:8])
}

// RedisTokenCache keeps tokens in Redis with a TTL.
type RedisTokenCache struct {
	redis *redis.Client
}

func NewRedisTokenCache(redisClient *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{redis: redisClient}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.redis.Set(ctx, key, token, ttl).Err()
}
