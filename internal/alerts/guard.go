package alerts

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"stockroom/internal/log"
)

const claimKeyPrefix = "alert:low_stock:"

// RedisGuard claims (item, owner) slots with SET NX and a TTL of one window.
type RedisGuard struct {
	client *redis.Client
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func claimKey(itemID, userID int64) string {
	return claimKeyPrefix + strconv.FormatInt(itemID, 10) + ":" + strconv.FormatInt(userID, 10)
}

func (g *RedisGuard) Claim(ctx context.Context, itemID, userID int64, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, claimKey(itemID, userID), 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release drops a claim whose alert was not written. A key left behind keeps
// the item muted until its TTL runs out.
func (g *RedisGuard) Release(ctx context.Context, itemID, userID int64) {
	if err := g.client.Del(ctx, claimKey(itemID, userID)).Err(); err != nil {
		log.Warn(nil, "alert.guard_release_failed", err, map[string]any{"inventory_id": itemID, "user_id": userID})
	}
}
