package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/usamatauqir381/questxcopilot/internal/model"
)

// DeliveryCache is a read-through copy of persisted randomization maps.
// The repository stays the source of truth; a miss is never an error.
type DeliveryCache interface {
	GetMap(ctx context.Context, attemptID string) (*model.RandomizationMap, error)
	SetMap(ctx context.Context, m *model.RandomizationMap) error
}

type deliveryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeliveryCache creates a Redis-backed map cache
func NewDeliveryCache(client *redis.Client, ttl time.Duration) DeliveryCache {
	return &deliveryCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *deliveryCache) key(attemptID string) string {
	return fmt.Sprintf("delivery:%s:map", attemptID)
}

func (c *deliveryCache) GetMap(ctx context.Context, attemptID string) (*model.RandomizationMap, error) {
	data, err := c.client.Get(ctx, c.key(attemptID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m model.RandomizationMap
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *deliveryCache) SetMap(ctx context.Context, m *model.RandomizationMap) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(m.AttemptID), data, c.ttl).Err()
}
