package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
)

const (
	keyPrefix    = "grievance:ref:"
	unitsKey     = keyPrefix + "units"
	employeesKey = keyPrefix + "employees:"
)

// ReferenceCache is a read-through cache of slow-changing reference lists. Entries are
// dropped explicitly on login and unit switch and otherwise expire after ttl. A nil
// client disables caching.
type ReferenceCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewReferenceCache builds the cache.
func NewReferenceCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *ReferenceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReferenceCache{client: client, ttl: ttl, logger: logger}
}

// Units returns the unit list, loading it on a miss.
func (c *ReferenceCache) Units(ctx context.Context, load func(context.Context) ([]domain.Unit, error)) ([]domain.Unit, error) {
	return readThrough(ctx, c, unitsKey, load)
}

// Employees returns the employees of unitID, loading them on a miss. Password hashes are
// never written to the cache.
func (c *ReferenceCache) Employees(ctx context.Context, unitID string, load func(context.Context) ([]domain.Employee, error)) ([]domain.Employee, error) {
	return readThrough(ctx, c, EmployeesKey(unitID), func(ctx context.Context) ([]domain.Employee, error) {
		employees, err := load(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Employee, len(employees))
		for i, e := range employees {
			e.PasswordHash = ""
			out[i] = e
		}
		return out, nil
	})
}

// Refresh drops the unit list and the employee list of each unit given.
func (c *ReferenceCache) Refresh(ctx context.Context, unitIDs ...string) error {
	if c == nil || c.client == nil {
		return nil
	}
	keys := []string{unitsKey}
	for _, id := range unitIDs {
		keys = append(keys, EmployeesKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

// EmployeesKey is the cache key of a unit's employee list.
func EmployeesKey(unitID string) string {
	if unitID == "" {
		unitID = "all"
	}
	return employeesKey + unitID
}

func readThrough[T any](ctx context.Context, c *ReferenceCache, key string, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var value T
		if jsonErr := json.Unmarshal(raw, &value); jsonErr == nil {
			return value, nil
		}
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("reference cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("reference cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
