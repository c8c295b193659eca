// ABOUTME: Per-user daily AI usage limits keyed by subscription tier.
// ABOUTME: Counts live in Redis; without Redis every request is allowed.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrUsageLimit is returned when a user has used up today's AI requests.
var ErrUsageLimit = errors.New("daily AI usage limit reached")

// Unlimited marks a tier without a daily cap.
const Unlimited = -1

// DefaultLimits are the daily request caps per tier.
var DefaultLimits = map[models.Tier]int{
	models.TierFree:  5,
	models.TierPro:   100,
	models.TierElite: Unlimited,
}

// Limiter records one AI request for a user and reports how many remain today.
// Unlimited tiers report Unlimited.
type Limiter interface {
	Allow(ctx context.Context, userID uuid.UUID, tier models.Tier) (remaining int, err error)
}

// NopLimiter allows every request.
type NopLimiter struct{}

// Allow always succeeds.
func (NopLimiter) Allow(context.Context, uuid.UUID, models.Tier) (int, error) {
	return Unlimited, nil
}

// RedisLimiter counts requests per user per UTC day in Redis.
type RedisLimiter struct {
	rdb    redis.Cmdable
	limits map[models.Tier]int
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a limiter. A nil limits map uses DefaultLimits.
func NewRedisLimiter(rdb redis.Cmdable, limits map[models.Tier]int) *RedisLimiter {
	if limits == nil {
		limits = DefaultLimits
	}
	return &RedisLimiter{
		rdb:    rdb,
		limits: limits,
		prefix: "goalpro:ai-usage",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *RedisLimiter) key(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, userID, l.now().Format("2006-01-02"))
}

// Allow increments today's counter and returns ErrUsageLimit once the tier's
// cap is exceeded. Unknown tiers get the free cap.
func (l *RedisLimiter) Allow(ctx context.Context, userID uuid.UUID, tier models.Tier) (int, error) {
	limit, ok := l.limits[tier]
	if !ok {
		limit = l.limits[models.TierFree]
	}
	if limit == Unlimited {
		return Unlimited, nil
	}

	key := l.key(userID)
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count ai usage: %w", err)
	}

	used := int(incr.Val())
	if used > limit {
		return 0, fmt.Errorf("%w: %d requests per day on the %s plan", ErrUsageLimit, limit, tier)
	}
	return limit - used, nil
}

// Used returns how many requests the user has made today.
func (l *RedisLimiter) Used(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := l.rdb.Get(ctx, l.key(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read ai usage: %w", err)
	}
	return n, nil
}
