package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// QuantitySource is the authoritative read used on cache misses.
type QuantitySource interface {
	Quantities(ctx context.Context, orgID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// StockCache keeps last-known product quantities in Redis for cart
// validation. It is written after every ledger apply and is never used to
// decide a stock write.
type StockCache struct {
	client   *redis.Client
	ttl      time.Duration
	fallback QuantitySource
}

func NewStockCache(client *redis.Client, ttl time.Duration, fallback QuantitySource) *StockCache {
	return &StockCache{client: client, ttl: ttl, fallback: fallback}
}

func stockKey(orgID, productID uuid.UUID) string {
	return fmt.Sprintf("stock:%s:%s", orgID, productID)
}

// StockChanged writes the committed quantity through to Redis. Concurrent
// writers can land out of order; the TTL bounds how long a stale value lives.
func (c *StockCache) StockChanged(ctx context.Context, orgID, productID uuid.UUID, quantity int64) {
	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()
	if err := c.client.Set(ctx, stockKey(orgID, productID), quantity, c.ttl).Err(); err != nil {
		log.Printf("[cache] stock %s: %v", productID, err)
	}
}

// Quantities serves from Redis and loads misses from the fallback, caching
// what it loaded. Products unknown to both are left out of the map.
func (c *StockCache) Quantities(ctx context.Context, orgID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = stockKey(orgID, id)
	}

	misses := productIDs
	results, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		log.Printf("[cache] MGET failed, reading stock from the ledger: %v", err)
	} else {
		misses = nil
		for i, res := range results {
			s, ok := res.(string)
			if !ok {
				misses = append(misses, productIDs[i])
				continue
			}
			q, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				misses = append(misses, productIDs[i])
				continue
			}
			out[productIDs[i]] = q
		}
	}
	if len(misses) == 0 || c.fallback == nil {
		return out, nil
	}

	loaded, err := c.fallback.Quantities(ctx, orgID, misses)
	if err != nil {
		return nil, err
	}
	if len(loaded) == 0 {
		return out, nil
	}
	pipe := c.client.Pipeline()
	for id, q := range loaded {
		out[id] = q
		pipe.Set(ctx, stockKey(orgID, id), q, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[cache] populate failed: %v", err)
	}
	return out, nil
}
