package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"QueryKit/internal/logger"

	"github.com/redis/go-redis/v9"
)

// CountCache memoizes offset-mode COUNT results in redis so repeated
// page walks over the same filter set skip the scan. Misses and redis
// failures both fall through to the real query.
type CountCache struct {
	RDB *redis.Client
	TTL time.Duration
}

func (c *CountCache) Get(ctx context.Context, key string) (int64, bool) {
	if c == nil || c.RDB == nil {
		return 0, false
	}
	raw, err := c.RDB.Get(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

func (c *CountCache) Set(ctx context.Context, key string, total int64) {
	if c == nil || c.RDB == nil {
		return
	}
	if err := c.RDB.Set(ctx, key, strconv.FormatInt(total, 10), c.TTL).Err(); err != nil {
		logger.Warn("count_cache_set_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// countKey derives a stable cache key from the compiled count query.
func countKey(entity, sql string, args []any) string {
	sum := sha256.Sum256([]byte(sql + "|" + fmt.Sprint(args...)))
	return "count:" + entity + ":" + hex.EncodeToString(sum[:16])
}
