package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bracket-esports/bracket/common/cache"
)

// RedisWindow shares one fixed window per region across every instance.
// Windows are aligned to the wall clock so all instances agree on the key.
type RedisWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
	clock  Clock
}

func NewRedisWindow(rc *cache.RedisClient, limit int, opts ...Option) *RedisWindow {
	o := buildOptions(opts)
	if limit < 1 {
		limit = 1
	}
	return &RedisWindow{
		client: rc.GetClient(),
		limit:  limit,
		window: o.window,
		clock:  o.clock,
	}
}

func windowKey(region string, slot time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", region, slot.UnixMilli())
}

func (l *RedisWindow) Wait(ctx context.Context, region string) error {
	for {
		now := l.clock.Now()
		slot := now.Truncate(l.window)
		key := windowKey(region, slot)

		pipe := l.client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.PExpire(ctx, key, 2*l.window)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to count request: %w", err)
		}

		if incr.Val() <= int64(l.limit) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(slot.Add(l.window).Sub(now)):
		}
	}
}
