package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"collection-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

const identityKeyFmt = "identity:%d"

// CachedIdentity is what the auth middleware needs to admit a request.
// Balances are never cached.
type CachedIdentity struct {
	EmployeeID int64  `json:"employee_id"`
	Role       string `json:"role"`
	IsActive   bool   `json:"is_active"`
}

// IdentityCache is an optional Redis-backed cache. A nil *IdentityCache is a
// valid cache that never hits, so callers degrade gracefully without Redis.
type IdentityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdentityCache(client *redis.Client, ttl time.Duration) *IdentityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &IdentityCache{client: client, ttl: ttl}
}

// Connect dials Redis from config. It returns a nil cache when no address is
// configured, and an error when the server is configured but unreachable.
func Connect(ctx context.Context, cfg *config.Config) (*IdentityCache, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewIdentityCache(client, cfg.IdentityTTL()), nil
}

// Get returns the cached identity for employeeID, if present.
func (c *IdentityCache) Get(ctx context.Context, employeeID int64) (*CachedIdentity, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, fmt.Sprintf(identityKeyFmt, employeeID)).Bytes()
	if err != nil {
		return nil, false
	}
	var id CachedIdentity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, false
	}
	return &id, true
}

func (c *IdentityCache) Set(ctx context.Context, id CachedIdentity) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(id)
	if err != nil {
		return
	}
	c.client.Set(ctx, fmt.Sprintf(identityKeyFmt, id.EmployeeID), data, c.ttl)
}

// Invalidate drops a cached identity after the employee record changes.
func (c *IdentityCache) Invalidate(ctx context.Context, employeeID int64) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, fmt.Sprintf(identityKeyFmt, employeeID))
}

// Ping is used by the detailed health check.
func (c *IdentityCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *IdentityCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
