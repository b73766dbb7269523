package salescache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Key is the Redis key holding the precomputed active sale ids. Bump the
// version suffix when the stored shape changes.
const Key = "discounts:active-sales:v1"

// Cache stores the set of sale ids whose static conditions currently hold,
// so request-path resolution skips the full table scan.
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

// ActiveSaleIDs returns the cached sale ids. The second return reports a
// cache hit; a miss is not an error.
func (c *Cache) ActiveSaleIDs(ctx context.Context) ([]uuid.UUID, bool, error) {
	if c == nil || c.R == nil {
		return nil, false, nil
	}
	data, err := c.R.Get(ctx, Key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

// Store replaces the cached id set. An empty set is stored too; "no active
// sales" is a valid cached answer distinct from a miss.
func (c *Cache) Store(ctx context.Context, ids []uuid.UUID) error {
	if c == nil || c.R == nil {
		return nil
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, Key, data, c.TTL).Err()
}

// Invalidate drops the cached set, forcing the next resolution to scan the
// repository. Called after admin writes to sale discounts.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.R == nil {
		return nil
	}
	return c.R.Del(ctx, Key).Err()
}
