// internal/customers/cached.go
package customers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/models"
)

const DefaultCacheKey = "loyalty:customers:all"

// CachedSource is a Redis read-through cache around another Source. Redis
// failures are logged and the wrapped source is used instead.
type CachedSource struct {
	next   Source
	rdb    redis.Cmdable
	key    string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSource(next Source, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedSource {
	return &CachedSource{
		next:   next,
		rdb:    rdb,
		key:    DefaultCacheKey,
		ttl:    ttl,
		logger: logger.Component(log, "customer-cache"),
	}
}

func (c *CachedSource) FetchCustomers(ctx context.Context) ([]models.Customer, error) {
	cached, err := c.rdb.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var out []models.Customer
		if jsonErr := json.Unmarshal(cached, &out); jsonErr == nil {
			return out, nil
		}
		c.logger.Warn("Discarding unreadable cached customers", map[string]interface{}{"key": c.key})
	case stderrors.Is(err, redis.Nil):
	default:
		c.logger.Warn("Customer cache read failed", map[string]interface{}{"error": err})
	}

	out, err := c.next.FetchCustomers(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Customer cache write failed", map[string]interface{}{"error": err})
		}
	}
	return out, nil
}

// Invalidate drops the cached population.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}
