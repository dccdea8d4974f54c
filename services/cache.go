// services/cache.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"agentgift-economy/metrics"
	"agentgift-economy/models"

	"github.com/go-redis/redis/v8"
)

const accountKeyPrefix = "agentgift:account:"

// AccountCache is a Redis read-through cache of account rows. A nil
// *AccountCache is valid and always goes to the loader.
type AccountCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAccountCache(client *redis.Client, ttl time.Duration) *AccountCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AccountCache{client: client, ttl: ttl}
}

// DialAccountCache connects to redisURL. An empty URL disables caching.
func DialAccountCache(ctx context.Context, redisURL string, ttl time.Duration) (*AccountCache, error) {
	if redisURL == "" {
		log.Println("⚠️  [CACHE] REDIS_URL not set, account cache disabled")
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Printf("✅ [CACHE] Connected to Redis at %s (ttl %s)", opts.Addr, ttl)
	return NewAccountCache(client, ttl), nil
}

func accountKey(userID string) string { return accountKeyPrefix + userID }

// Get returns the cached account or calls load and caches its result.
// Redis failures are logged and fall through to load.
func (c *AccountCache) Get(ctx context.Context, userID string, load func(context.Context) (*models.UserAccount, error)) (*models.UserAccount, error) {
	if c == nil {
		return load(ctx)
	}

	raw, err := c.client.Get(ctx, accountKey(userID)).Bytes()
	switch {
	case err == nil:
		var acct models.UserAccount
		if jerr := json.Unmarshal(raw, &acct); jerr == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return &acct, nil
		}
		log.Printf("⚠️ [CACHE] Dropping undecodable entry for %s", userID)
	case errors.Is(err, redis.Nil):
	default:
		log.Printf("⚠️ [CACHE] Redis get failed for %s: %v", userID, err)
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	acct, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if payload, jerr := json.Marshal(acct); jerr == nil {
		if serr := c.client.Set(ctx, accountKey(userID), payload, c.ttl).Err(); serr != nil {
			log.Printf("⚠️ [CACHE] Redis set failed for %s: %v", userID, serr)
		}
	}
	return acct, nil
}

// Invalidate drops the cached copy after a mutation.
func (c *AccountCache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, accountKey(userID)).Err(); err != nil {
		log.Printf("⚠️ [CACHE] Redis delete failed for %s: %v", userID, err)
	}
}

func (c *AccountCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
