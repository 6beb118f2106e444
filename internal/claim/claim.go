// Package claim lets exactly one dispatch cycle win a (schedule, day) pair
// when cycles overlap.
package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KeyPrefix namespaces claim keys in Redis.
const KeyPrefix = "reminder:claim:"

// Claimer decides whether this run may dispatch a schedule for a day.
type Claimer interface {
	Claim(ctx context.Context, scheduleID, dayKey, runID string) bool
}

// Nop always wins. Used when no Redis is configured.
type Nop struct{}

func (Nop) Claim(context.Context, string, string, string) bool { return true }

// Redis claims with SET NX so only the first run of the day wins.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewRedis(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = 26 * time.Hour
	}
	return &Redis{rdb: rdb, ttl: ttl, log: log.Named("claim")}
}

// Key returns the Redis key for a (schedule, day) pair.
func Key(scheduleID, dayKey string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefix, scheduleID, dayKey)
}

// Claim returns true if this run owns the pair. When Redis is unavailable the
// claim fails open: a duplicate reminder is preferred over a missed one.
func (c *Redis) Claim(ctx context.Context, scheduleID, dayKey, runID string) bool {
	ok, err := c.rdb.SetNX(ctx, Key(scheduleID, dayKey), runID, c.ttl).Result()
	if err != nil {
		c.log.Warn("claim failed, dispatching anyway",
			zap.String("schedule_id", scheduleID),
			zap.String("day_key", dayKey),
			zap.Error(err),
		)
		return true
	}
	return ok
}
