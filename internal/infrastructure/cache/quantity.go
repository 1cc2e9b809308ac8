// Package cache holds the Redis adapters: the quantity cache and the lease
// that serializes periodic passes across worker processes.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"repairpos/internal/config"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/registers/inventory"
)

const keyPrefix = "repairpos:qty:"

// DefaultTTL bounds how long a quantity survives without a rebuild.
const DefaultTTL = 10 * time.Minute

var _ inventory.QuantityCache = (*QuantityCache)(nil)

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// QuantityCache stores the quantities of one product in a Redis hash keyed
// by location. The caller keeps ownership of the client.
type QuantityCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewQuantityCache creates a cache over client. A zero ttl uses DefaultTTL.
func NewQuantityCache(client redis.Cmdable, ttl time.Duration) *QuantityCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QuantityCache{client: client, ttl: ttl}
}

func productKey(productID id.ID) string {
	return keyPrefix + productID.String()
}

// Get implements inventory.QuantityCache.
func (c *QuantityCache) Get(ctx context.Context, productID, locationID id.ID) (int64, bool, error) {
	qty, err := c.client.HGet(ctx, productKey(productID), locationID.String()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cached quantity: %w", err)
	}
	return qty, true, nil
}

// Set implements inventory.QuantityCache.
func (c *QuantityCache) Set(ctx context.Context, productID, locationID id.ID, qty int64) error {
	key := productKey(productID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, locationID.String(), qty)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set cached quantity: %w", err)
	}
	return nil
}

// InvalidateProduct implements inventory.QuantityCache.
func (c *QuantityCache) InvalidateProduct(ctx context.Context, productID id.ID) error {
	if err := c.client.Del(ctx, productKey(productID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached quantities: %w", err)
	}
	return nil
}

// ReplaceProduct implements inventory.QuantityCache. The hash is swapped in
// one MULTI block so readers never see a partial set.
func (c *QuantityCache) ReplaceProduct(ctx context.Context, productID id.ID, quantities map[id.ID]int64) error {
	key := productKey(productID)
	fields := hashFields(quantities)

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace cached quantities: %w", err)
	}
	return nil
}

func hashFields(quantities map[id.ID]int64) map[string]any {
	fields := make(map[string]any, len(quantities))
	for locationID, qty := range quantities {
		fields[locationID.String()] = qty
	}
	return fields
}
