// Package cache provides a read-through Redis cache for request status.
// Status reads dominate the workflow traffic (every list view polls them);
// the authoritative row is only consulted on a miss. Commits invalidate, so
// staleness is bounded by the TTL only when invalidation itself fails.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"flowgate/internal/platform/redis"
	"flowgate/internal/workflow/models"
)

// StatusCache caches ApprovalRequest snapshots. All methods are nil-safe:
// a nil cache (Redis not configured) is a valid no-op implementation.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a status cache. Returns nil when the client is nil.
func New(client *redis.Client, ttl time.Duration) *StatusCache {
	if client == nil {
		return nil
	}
	return &StatusCache{client: client, ttl: ttl}
}

func key(entityType, entityID string) string {
	return "workflow:status:" + entityType + ":" + entityID
}

// Get returns the cached request, or nil on miss or any cache error. Cache
// trouble is never surfaced; callers fall through to the store.
func (c *StatusCache) Get(ctx context.Context, entityType, entityID string) *models.ApprovalRequest {
	if c == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, key(entityType, entityID)).Bytes()
	if err != nil {
		// Misses and cache failures look the same to callers.
		return nil
	}
	var request models.ApprovalRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		return nil
	}
	return &request
}

// Set stores the request snapshot with the configured TTL.
func (c *StatusCache) Set(ctx context.Context, request *models.ApprovalRequest) {
	if c == nil || request == nil {
		return
	}
	raw, err := json.Marshal(request)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key(request.EntityType, request.EntityID), raw, c.ttl).Err()
}

// Invalidate drops the cached snapshot after a committed transition.
func (c *StatusCache) Invalidate(ctx context.Context, entityType, entityID string) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, key(entityType, entityID)).Err()
}
